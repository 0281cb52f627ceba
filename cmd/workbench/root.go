package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/backend"
	"github.com/kingrea/workbench/internal/board"
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/logbook"
	"github.com/kingrea/workbench/internal/logging"
)

var (
	projectFlag string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "workbench",
	Short: "Readiness board for workbench projects",
	Long: `workbench shows every project's readiness, gate and completeness scores
as tiered labels, colours and bars, pulled from the workbench API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBoard,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "Project directory holding .workbench/ (defaults to cwd)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Write debug output to .workbench/logs/workbench.log")
}

// env is everything a command needs from the project directory.
type env struct {
	cfg     *config.Config
	logger  *logging.Logger
	journal *logbook.Logbook
}

func (e *env) Close() {
	if e == nil || e.logger == nil {
		return
	}
	_ = e.logger.Close()
}

// loadEnv initializes .workbench/ and opens its config and logs.
func loadEnv() (*env, error) {
	projectDir, err := resolveProjectDir(projectFlag)
	if err != nil {
		return nil, err
	}
	if err := config.InitWorkbenchDir(projectDir); err != nil {
		return nil, fmt.Errorf("init %s: %w", config.WorkbenchDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(projectDir, logging.Options{Verbose: verboseFlag})
	if err != nil {
		return nil, err
	}
	journal, err := logbook.New(filepath.Join(cfg.LogsDir(), logbook.FileName))
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("open logbook: %w", err)
	}
	return &env{cfg: cfg, logger: logger, journal: journal}, nil
}

func resolveProjectDir(flag string) (string, error) {
	dir := strings.TrimSpace(flag)
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("determine working directory: %w", err)
		}
		dir = cwd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve project dir: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project dir: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project dir %s is not a directory", abs)
	}
	return abs, nil
}

// newClient builds the backend client from config.
func (e *env) newClient() (*backend.Client, error) {
	backendCfg := e.cfg.Project.Backend
	return backend.New(e.cfg.BaseURL(),
		backend.WithToken(e.cfg.APIToken()),
		backend.WithTimeout(backendCfg.Timeout),
		backend.WithConcurrency(backendCfg.Concurrency),
		backend.WithLogger(e.logger.With("component", "backend")),
	)
}

// newLoader wires the board loader with history and the journal.
func (e *env) newLoader(client *backend.Client) *board.Loader {
	return board.NewLoader(client, e.cfg,
		board.WithHistory(board.NewHistory(e.cfg.HistoryPath())),
		board.WithJournal(e.journal),
		board.WithLogger(e.logger.With("component", "board")),
	)
}
