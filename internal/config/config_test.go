package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/workbench/internal/tier"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	projectDir := t.TempDir()
	workbenchDir := filepath.Join(projectDir, WorkbenchDir)
	if err := os.MkdirAll(workbenchDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(workbenchDir, "config.yaml"), []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
	return projectDir
}

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	projectDir := t.TempDir()
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", cfg.Project.Version)
	}
	if cfg.DefaultTable() != defaultTable {
		t.Fatalf("expected default table %q, got %q", defaultTable, cfg.DefaultTable())
	}
	if cfg.Project.Backend.Timeout != defaultTimeout || cfg.Project.Board.PollInterval != defaultPollInterval {
		t.Fatalf("unexpected durations: %+v %+v", cfg.Project.Backend, cfg.Project.Board)
	}
	for _, name := range []string{"gate", "readiness", "completeness"} {
		if _, ok := cfg.Table(name); !ok {
			t.Fatalf("expected built-in table %s", name)
		}
	}
}

func TestInitWorkbenchDirWritesLoadableConfig(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitWorkbenchDir(projectDir); err != nil {
		t.Fatalf("InitWorkbenchDir: %v", err)
	}
	for _, dir := range []string{"logs", "state", "reports"} {
		if info, err := os.Stat(filepath.Join(projectDir, WorkbenchDir, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected %s directory: %v", dir, err)
		}
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("default config should load: %v", err)
	}
	if cfg.Project.Bridge.Port != 8765 {
		t.Fatalf("bridge port = %d, want 8765", cfg.Project.Bridge.Port)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	projectDir := writeConfig(t, `
version: 1
backend:
  base_url: https://api.example.com/
  timeout: 3s
  concurrency: 8
board:
  poll_interval: 1m
  default_table: strict
tiers:
  strict:
    source: gate
    thresholds:
      - {min: 0, label: Red, color: red}
      - {min: 90, label: Green, color: green}
  readiness:
    thresholds:
      - {min: 60, label: OK, color: green}
      - {min: 0, label: Low, color: red}
palette:
  green: "#00FF00"
`)
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.BaseURL() != "https://api.example.com" {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.Project.Backend.Timeout != 3*time.Second || cfg.Project.Board.PollInterval != time.Minute {
		t.Fatalf("durations not parsed: %+v %+v", cfg.Project.Backend, cfg.Project.Board)
	}
	strict, ok := cfg.Table("Strict")
	if !ok {
		t.Fatalf("expected strict table")
	}
	if strict.Source != "gate" {
		t.Fatalf("strict source = %q, want gate", strict.Source)
	}
	if got := tier.Resolve(tier.ScoreInput{RawScore: tier.Float(89)}, strict.Thresholds); got.Label != "Red" {
		t.Fatalf("strict 89 = %q, want Red", got.Label)
	}
	readiness, _ := cfg.Table("readiness")
	if readiness.Source != "readiness" || readiness.Thresholds.Len() != 2 {
		t.Fatalf("readiness override not applied: %+v", readiness)
	}
	if tables := cfg.Tables(); tables[0].Name != "strict" {
		t.Fatalf("default table should sort first, got %s", tables[0].Name)
	}
}

func TestLoadProjectConfigRejectsTableWithoutCatchAll(t *testing.T) {
	projectDir := writeConfig(t, `
version: 1
tiers:
  readiness:
    thresholds:
      - {min: 50, label: Fair, color: yellow}
`)
	_, err := NewConfig(projectDir)
	if !errors.Is(err, tier.ErrNoCatchAll) {
		t.Fatalf("err = %v, want ErrNoCatchAll", err)
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	cases := map[string]string{
		"bad url":       "version: 1\nbackend:\n  base_url: ftp://nowhere\n",
		"unknown src":   "version: 1\ntiers:\n  velocity:\n    thresholds:\n      - {min: 0, label: x, color: y}\n",
		"empty table":   "version: 1\ntiers:\n  gate:\n    thresholds: []\n",
		"unknown deflt": "version: 1\nboard:\n  default_table: nope\n",
		"bad port":      "version: 1\nbridge:\n  port: 70000\n",
	}
	for name, body := range cases {
		projectDir := writeConfig(t, body)
		if _, err := NewConfig(projectDir); err == nil {
			t.Fatalf("%s: expected validation error but got none", name)
		}
	}
}

func TestBaseURLEnvOverride(t *testing.T) {
	t.Setenv("WORKBENCH_API_URL", "http://backend.internal:9000/")
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.BaseURL() != "http://backend.internal:9000" {
		t.Fatalf("base url = %q", cfg.BaseURL())
	}
	if cfg.Project.Backend.BaseURL != defaultBaseURL {
		t.Fatalf("env override must not leak into persisted config")
	}
	t.Setenv("WORKBENCH_API_URL", "not a url")
	if _, err := NewConfig(t.TempDir()); err == nil {
		t.Fatalf("expected invalid env url to fail")
	}
}

func TestAPITokenFromEnv(t *testing.T) {
	t.Setenv("WORKBENCH_API_TOKEN", " secret ")
	cfg, err := NewConfig(t.TempDir())
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.APIToken() != "secret" {
		t.Fatalf("token = %q", cfg.APIToken())
	}
}

func TestSetDefaultTablePersists(t *testing.T) {
	projectDir := t.TempDir()
	if err := InitWorkbenchDir(projectDir); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfig(projectDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetDefaultTable("gate"); err != nil {
		t.Fatalf("SetDefaultTable: %v", err)
	}
	if err := cfg.SetDefaultTable("missing"); err == nil {
		t.Fatalf("expected unknown table to be rejected")
	}
	reloaded, err := NewConfig(projectDir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.DefaultTable() != "gate" {
		t.Fatalf("default table = %q, want gate", reloaded.DefaultTable())
	}
	if _, ok := reloaded.Table("readiness"); !ok {
		t.Fatalf("configured tables must survive a save")
	}
}
