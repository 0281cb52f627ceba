package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/render"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the configured tier tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		return writeTables(cmd.OutOrStdout(), e.cfg, render.NewPalette(e.cfg.Project.Palette))
	},
}

func init() {
	rootCmd.AddCommand(tablesCmd)
}

// writeTables prints one row per table with its thresholds highest first.
func writeTables(w io.Writer, cfg *config.Config, palette render.Palette) error {
	def := cfg.DefaultTable()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Table", "Source", "Tiers")
	for _, tt := range cfg.Tables() {
		name := tt.Name
		if name == def {
			name += " *"
		}
		var tiers []string
		for _, entry := range tt.Thresholds.Entries() {
			tiers = append(tiers, fmt.Sprintf("%s ≥%g", palette.Style(entry.ColorToken).Render(entry.Label), entry.Min))
		}
		t.Row(name, tt.Source, strings.Join(tiers, " · "))
	}
	_, err := fmt.Fprintf(w, "%s\n* default table\n", t.Render())
	return err
}
