package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/render"
)

var (
	reportFormat string
	reportTable  string
	reportOut    string
	reportStdout bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Fetch every project and write a board report",
	Long: `Fetch every project's readiness and write the board grouped by tier.

Without --out the report is saved under .workbench/reports/ with a
timestamped name. Use --stdout to print it instead.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "table", "Report format: table, json or markdown")
	reportCmd.Flags().StringVar(&reportTable, "table", "", "Tier table to group by (defaults to board.default_table)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Output file path")
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "Print the report instead of saving it")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()
	format, err := render.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	table, err := lookupTable(e.cfg, reportTable)
	if err != nil {
		return err
	}
	client, err := e.newClient()
	if err != nil {
		return err
	}
	loader := e.newLoader(client)
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	refresh, err := loader.Refresh(ctx)
	if err != nil {
		return err
	}
	if refresh.Failed > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d project(s) could not be refreshed; showing list scores\n", refresh.Failed)
	}
	report := render.Report{
		GeneratedAt: time.Now().UTC(),
		Table:       table,
		Tables:      e.cfg.Tables(),
		Snapshot:    refresh.Snapshot,
	}
	var buf bytes.Buffer
	if err := render.Write(&buf, format, report, render.NewPalette(e.cfg.Project.Palette)); err != nil {
		return err
	}
	if reportStdout {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}
	path := reportPath(e.cfg.ReportsDir(), reportOut, table.Name, format, report.GeneratedAt)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	e.journal.Info("Report written: %s", path)
	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
	return nil
}

// reportPath returns out when set, else a timestamped file in dir.
func reportPath(dir, out, table string, format render.Format, at time.Time) string {
	if path := strings.TrimSpace(out); path != "" {
		return path
	}
	name := fmt.Sprintf("board-%s-%s%s", table, at.UTC().Format("20060102-150405"), format.Extension())
	return filepath.Join(dir, name)
}
