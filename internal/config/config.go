// internal/config/config.go
//
// This package handles configuration and the .workbench directory structure.
// Every project that uses the workbench board gets a .workbench/ folder
// created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/workbench/internal/tier"
	"github.com/kingrea/workbench/internal/upstream"
)

const (
	// WorkbenchDir is the name of the directory we create in each project
	WorkbenchDir = ".workbench"

	defaultBaseURL      = "http://127.0.0.1:8000"
	defaultTokenEnv     = "WORKBENCH_API_TOKEN"
	defaultTimeout      = 10 * time.Second
	defaultConcurrency  = 4
	defaultPollInterval = 15 * time.Second
	defaultTable        = upstream.SourceReadiness
)

const defaultProjectConfigYAML = `# workbench board configuration
version: 1

backend:
  base_url: http://127.0.0.1:8000
  # Environment variable holding the bearer token for the backend API.
  token_env: WORKBENCH_API_TOKEN
  timeout: 10s
  concurrency: 4

board:
  poll_interval: 15s
  default_table: readiness

# Tier tables per visual context. The built-in gate, readiness and
# completeness tables are always available; entries here override them or
# add new ones. source picks the score (readiness, gate, completeness).
tiers:
  readiness:
    source: readiness
    thresholds:
      - {min: 80, label: Good, color: green}
      - {min: 50, label: Fair, color: yellow}
      - {min: 0, label: Poor, color: red}

# Colour tokens to terminal colours. Unknown tokens render uncoloured.
# palette:
#   green: "#4CAF50"

bridge:
  enabled: true
  host: 127.0.0.1
  port: 8765
`

// BackendConfig points the board at the workbench API.
type BackendConfig struct {
	BaseURL     string        `yaml:"base_url"`
	TokenEnv    string        `yaml:"token_env,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
}

// BoardConfig captures dashboard preferences.
type BoardConfig struct {
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	DefaultTable string        `yaml:"default_table"`
}

// TierTableConfig declares one named tier table.
type TierTableConfig struct {
	Source     string           `yaml:"source,omitempty"`
	Thresholds []tier.Threshold `yaml:"thresholds"`
}

// BridgeConfig holds the raw bridge settings; see bridge.SettingsFromConfig.
type BridgeConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// ProjectConfig models .workbench/config.yaml.
type ProjectConfig struct {
	Version int                        `yaml:"version"`
	Backend BackendConfig              `yaml:"backend"`
	Board   BoardConfig                `yaml:"board"`
	Tiers   map[string]TierTableConfig `yaml:"tiers,omitempty"`
	Palette map[string]string          `yaml:"palette,omitempty"`
	Bridge  BridgeConfig               `yaml:"bridge"`
}

// TierTable is a compiled, validated tier table bound to a score source.
type TierTable struct {
	Name       string
	Source     string
	Thresholds tier.Thresholds
}

// Config holds the runtime configuration for the board.
type Config struct {
	// ProjectDir is the directory where the user ran `workbench` from
	ProjectDir string

	// WorkbenchProjectDir is ProjectDir/.workbench
	WorkbenchProjectDir string

	Project ProjectConfig

	tables     map[string]TierTable
	apiBaseURL string
}

// InitWorkbenchDir creates the .workbench directory structure in the given
// project directory.
//
// Structure created:
// .workbench/
// ├── config.yaml
// ├── logs/      <- workbench.log and journey.log
// ├── state/     <- last board snapshot
// └── reports/   <- exported board reports
func InitWorkbenchDir(projectDir string) error {
	root := filepath.Join(projectDir, WorkbenchDir)
	dirs := []string{
		filepath.Join(root, "logs"),
		filepath.Join(root, "state"),
		filepath.Join(root, "reports"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(root, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:          projectDir,
		WorkbenchProjectDir: filepath.Join(projectDir, WorkbenchDir),
		Project:             defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WorkbenchProjectDir, "logs")
}

// StateDir returns the path to the state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.WorkbenchProjectDir, "state")
}

// ReportsDir returns the path exported reports are written to
func (c *Config) ReportsDir() string {
	return filepath.Join(c.WorkbenchProjectDir, "reports")
}

// HistoryPath returns the file holding the last board snapshot
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir(), "board.json")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WorkbenchProjectDir, "config.yaml")
}

// APIToken reads the bearer token from the configured environment variable.
func (c *Config) APIToken() string {
	name := strings.TrimSpace(c.Project.Backend.TokenEnv)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}

// Table returns the compiled table with the given name.
func (c *Config) Table(name string) (TierTable, bool) {
	table, ok := c.tables[strings.ToLower(strings.TrimSpace(name))]
	return table, ok
}

// Tables returns every compiled table, default first and the rest by name.
func (c *Config) Tables() []TierTable {
	out := make([]TierTable, 0, len(c.tables))
	for _, table := range c.tables {
		out = append(out, table)
	}
	def := c.DefaultTable()
	sort.Slice(out, func(i, j int) bool {
		if (out[i].Name == def) != (out[j].Name == def) {
			return out[i].Name == def
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DefaultTable returns the table the board opens with.
func (c *Config) DefaultTable() string {
	return c.Project.Board.DefaultTable
}

// SetDefaultTable updates the default table and persists the value back to
// .workbench/config.yaml.
func (c *Config) SetDefaultTable(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("config: table name is required")
	}
	if _, ok := c.tables[name]; !ok {
		return fmt.Errorf("config: unknown tier table %q", name)
	}
	c.Project.Board.DefaultTable = name
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	parsed := defaultProjectConfig()
	if err == nil {
		parsed = ProjectConfig{}
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	tables, err := parsed.compileTables()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, ok := tables[parsed.Board.DefaultTable]; !ok {
		return fmt.Errorf("config: board.default_table %q is not a known tier table", parsed.Board.DefaultTable)
	}
	c.apiBaseURL = parsed.Backend.BaseURL
	if value := strings.TrimSpace(os.Getenv("WORKBENCH_API_URL")); value != "" {
		value = strings.TrimRight(value, "/")
		if err := validateBaseURL(value); err != nil {
			return fmt.Errorf("config: WORKBENCH_API_URL: %w", err)
		}
		c.apiBaseURL = value
	}
	c.Project = parsed
	c.tables = tables
	return nil
}

// BaseURL returns the backend URL, honouring WORKBENCH_API_URL.
func (c *Config) BaseURL() string {
	if c.apiBaseURL != "" {
		return c.apiBaseURL
	}
	return c.Project.Backend.BaseURL
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{Version: 1}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Backend.BaseURL) == "" {
		pc.Backend.BaseURL = defaultBaseURL
	}
	if pc.Backend.TokenEnv == "" {
		pc.Backend.TokenEnv = defaultTokenEnv
	}
	if pc.Backend.Timeout <= 0 {
		pc.Backend.Timeout = defaultTimeout
	}
	if pc.Backend.Concurrency <= 0 {
		pc.Backend.Concurrency = defaultConcurrency
	}
	if pc.Board.PollInterval <= 0 {
		pc.Board.PollInterval = defaultPollInterval
	}
	if strings.TrimSpace(pc.Board.DefaultTable) == "" {
		pc.Board.DefaultTable = defaultTable
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(pc.Backend.BaseURL), "/")
	pc.Backend.TokenEnv = strings.TrimSpace(pc.Backend.TokenEnv)
	pc.Board.DefaultTable = strings.ToLower(strings.TrimSpace(pc.Board.DefaultTable))
	if len(pc.Tiers) > 0 {
		normalized := make(map[string]TierTableConfig, len(pc.Tiers))
		for name, table := range pc.Tiers {
			key := strings.ToLower(strings.TrimSpace(name))
			table.Source = strings.ToLower(strings.TrimSpace(table.Source))
			if table.Source == "" {
				table.Source = key
			}
			normalized[key] = table
		}
		pc.Tiers = normalized
	}
	if len(pc.Palette) > 0 {
		palette := make(map[string]string, len(pc.Palette))
		for token, color := range pc.Palette {
			palette[strings.TrimSpace(token)] = strings.TrimSpace(color)
		}
		pc.Palette = palette
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if err := validateBaseURL(pc.Backend.BaseURL); err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	for name, table := range pc.Tiers {
		if name == "" {
			return fmt.Errorf("tiers: table name is required")
		}
		if !knownSource(table.Source) {
			return fmt.Errorf("tiers[%s]: source must be one of %s", name, strings.Join(upstream.Sources(), ", "))
		}
	}
	for token, color := range pc.Palette {
		if token == "" || color == "" {
			return fmt.Errorf("palette entries need both a token and a colour")
		}
	}
	if pc.Bridge.Port < 0 || pc.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port %d out of range", pc.Bridge.Port)
	}
	return nil
}

// compileTables builds the built-in tables and then the configured ones, so
// a malformed table fails here rather than at render time.
func (pc *ProjectConfig) compileTables() (map[string]TierTable, error) {
	tables := make(map[string]TierTable, len(pc.Tiers)+3)
	for name, thresholds := range tier.Presets() {
		tables[name] = TierTable{Name: name, Source: name, Thresholds: thresholds}
	}
	for name, raw := range pc.Tiers {
		thresholds, err := tier.NewThresholds(raw.Thresholds...)
		if err != nil {
			return nil, fmt.Errorf("tiers[%s]: %w", name, err)
		}
		tables[name] = TierTable{Name: name, Source: raw.Source, Thresholds: thresholds}
	}
	return tables, nil
}

func validateBaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("must be an http(s) URL, got %q", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}

func knownSource(source string) bool {
	for _, s := range upstream.Sources() {
		if s == source {
			return true
		}
	}
	return false
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.WorkbenchProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure workbench dir: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
