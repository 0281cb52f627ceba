package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kingrea/workbench/internal/logbook"
)

var logLines int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent board activity",
	Long:  "Print the most recent entries of .workbench/logs/journey.log: tier changes, refresh failures and reports.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()
		return writeJournal(cmd.OutOrStdout(), e.journal.Recent(logLines))
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLines, "lines", "n", 20, "Number of entries to show")
	rootCmd.AddCommand(logCmd)
}

var levelStyles = map[logbook.Level]lipgloss.Style{
	logbook.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
	logbook.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
	logbook.LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
}

func writeJournal(w io.Writer, entries []logbook.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No activity yet.")
		return err
	}
	for _, entry := range entries {
		stamp := "                   "
		if !entry.Time.IsZero() {
			stamp = entry.Time.Local().Format("2006-01-02 15:04:05")
		}
		level := levelStyles[entry.Level].Render(fmt.Sprintf("%-5s", entry.Level))
		if _, err := fmt.Fprintf(w, "%s %s %s\n", stamp, level, entry.Message); err != nil {
			return err
		}
	}
	return nil
}
