package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/bridge"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge HTTP server in the foreground",
	Long: `Run the local bridge: GET /health, POST /v1/resolve and POST /events.
Host and port default to the bridge section of .workbench/config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	settings := bridge.SettingsFromConfig(e.cfg)
	if cmd.Flags().Changed("host") && serveHost != "" {
		settings.Host = serveHost
	}
	if cmd.Flags().Changed("port") {
		settings.Port = servePort
	}
	// An explicit serve always listens.
	settings.Enabled = true

	router := bridge.NewRouter(bridge.RouterWithLogger(e.logger.With("component", "router")))
	server := bridge.NewServer(settings,
		bridge.WithProcessor(router),
		bridge.WithTables(e.cfg),
		bridge.WithLogger(e.logger.With("component", "bridge")),
	)
	// Log pushed events so a foreground serve shows what the backend sends.
	sub := router.Subscribe(bridge.Wildcard)
	defer sub.Close()
	go func() {
		for evt := range sub.Events {
			e.journal.Info("Event %s for %s", evt.Type, evt.ProjectID)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Bridge listening on %s (ctrl+c to stop)\n", server.BaseURL())
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown bridge: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Bridge stopped")
	return nil
}
