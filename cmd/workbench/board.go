package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/bridge"
	"github.com/kingrea/workbench/internal/tui"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the interactive readiness board",
	Long: `Open the readiness board. Projects are polled every board.poll_interval;
when the bridge is enabled the backend can push readiness changes to it
directly.`,
	RunE: runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	client, err := e.newClient()
	if err != nil {
		return err
	}
	loader := e.newLoader(client)

	opts := []tui.AppOption{
		tui.WithLogbook(e.journal),
		tui.WithLogger(e.logger.With("component", "tui")),
	}
	router := bridge.NewRouter(bridge.RouterWithLogger(e.logger.With("component", "router")))
	server := bridge.NewServer(bridge.SettingsFromConfig(e.cfg),
		bridge.WithProcessor(router),
		bridge.WithTables(e.cfg),
		bridge.WithLogger(e.logger.With("component", "bridge")),
	)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	switch err := server.Start(ctx); {
	case err == nil:
		sub := router.Subscribe(bridge.Wildcard)
		defer sub.Close()
		defer func() { _ = server.Shutdown(context.Background()) }()
		opts = append(opts, tui.WithEvents(sub.Events))
		e.journal.Info("Bridge listening on %s", server.BaseURL())
	case errors.Is(err, bridge.ErrServerDisabled):
		e.logger.Debugf("bridge disabled")
	default:
		// The board still works on polling alone.
		e.logger.Errorf("bridge: %v", err)
		e.journal.Warn("Bridge unavailable: %v", err)
	}

	program := tea.NewProgram(
		tui.NewApp(e.cfg, loader, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run board: %w", err)
	}
	return nil
}
