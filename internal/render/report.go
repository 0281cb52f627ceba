package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/kingrea/workbench/internal/board"
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/tier"
)

// Format selects a report writer.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts table, json, markdown (or md).
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("render: unknown report format %q (want table, json or markdown)", value)
	}
}

// Extension returns the file extension used when a report is saved.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatMarkdown:
		return ".md"
	default:
		return ".txt"
	}
}

// Report is one rendered view of the board.
type Report struct {
	GeneratedAt time.Time
	// Table groups the report and drives the bar column.
	Table config.TierTable
	// Tables are every table shown per card, Table included.
	Tables   []config.TierTable
	Snapshot board.Snapshot
}

// Write renders the report in the given format.
func Write(w io.Writer, format Format, report Report, palette Palette) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, report)
	case FormatMarkdown:
		return WriteMarkdown(w, report)
	case FormatTable, "":
		return WriteTable(w, report, palette)
	default:
		return fmt.Errorf("render: unknown report format %q", format)
	}
}

// WriteTable renders a bordered terminal table, one row per card.
func WriteTable(w io.Writer, report Report, palette Palette) error {
	headers := []string{"Project", "Client", "Stage", ""}
	for _, t := range report.Tables {
		headers = append(headers, t.Name)
	}
	rows := make([][]string, 0, len(report.Snapshot.Cards))
	for _, card := range report.Snapshot.Cards {
		active := card.Score(report.Table.Name)
		row := []string{card.Name, card.Client, card.Stage, palette.Bar(active, 12)}
		for _, t := range report.Tables {
			result := card.Score(t.Name)
			row = append(row, cell(result, palette))
		}
		rows = append(rows, row)
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	body := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(trackColor))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return body
		})
	summary := columnSummary(report)
	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}

func cell(result tier.Result, palette Palette) string {
	if !result.HasScore() {
		return palette.Label(result)
	}
	return fmt.Sprintf("%s %s", Percent(result), palette.Label(result))
}

func columnSummary(report Report) string {
	parts := make([]string, 0, report.Table.Thresholds.Len()+1)
	for _, column := range board.Columns(report.Snapshot, report.Table) {
		parts = append(parts, fmt.Sprintf("%s: %d", column.Label, len(column.Cards)))
	}
	return fmt.Sprintf("%s · %s", report.Table.Name, strings.Join(parts, " · "))
}

type jsonReport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Table       string           `json:"table"`
	SnapshotID  string           `json:"snapshot_id"`
	Thresholds  []tier.Threshold `json:"thresholds"`
	Columns     []jsonColumn     `json:"columns"`
	Counts      map[string]int   `json:"counts"`
	Cards       []board.Card     `json:"cards"`
}

type jsonColumn struct {
	Label      string   `json:"label"`
	ColorToken string   `json:"color,omitempty"`
	Projects   []string `json:"projects"`
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report Report) error {
	out := jsonReport{
		GeneratedAt: report.GeneratedAt.UTC(),
		Table:       report.Table.Name,
		SnapshotID:  report.Snapshot.ID,
		Thresholds:  report.Table.Thresholds.Entries(),
		Counts:      board.Counts(report.Snapshot, report.Table),
		Cards:       report.Snapshot.Cards,
	}
	if out.Cards == nil {
		out.Cards = []board.Card{}
	}
	for _, column := range board.Columns(report.Snapshot, report.Table) {
		ids := make([]string, 0, len(column.Cards))
		for _, card := range column.Cards {
			ids = append(ids, card.ProjectID)
		}
		out.Columns = append(out.Columns, jsonColumn{Label: column.Label, ColorToken: column.ColorToken, Projects: ids})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteMarkdown writes a report with YAML frontmatter and one section per
// tier column.
func WriteMarkdown(w io.Writer, report Report) error {
	var body strings.Builder
	fmt.Fprintf(&body, "# Board: %s\n", report.Table.Name)
	for _, column := range board.Columns(report.Snapshot, report.Table) {
		fmt.Fprintf(&body, "\n## %s (%d)\n\n", column.Label, len(column.Cards))
		if len(column.Cards) == 0 {
			body.WriteString("_No projects._\n")
			continue
		}
		body.WriteString("| Project | Client |")
		for _, t := range report.Tables {
			fmt.Fprintf(&body, " %s |", t.Name)
		}
		body.WriteString("\n|---|---|")
		for range report.Tables {
			body.WriteString("---|")
		}
		body.WriteString("\n")
		for _, card := range column.Cards {
			fmt.Fprintf(&body, "| %s | %s |", escapeCell(card.Name), escapeCell(card.Client))
			for _, t := range report.Tables {
				result := card.Score(t.Name)
				if result.HasScore() {
					fmt.Fprintf(&body, " %s %s |", result.Display(), escapeCell(result.Label))
				} else {
					fmt.Fprintf(&body, " %s |", result.Display())
				}
			}
			body.WriteString("\n")
		}
	}
	doc, err := WriteFrontMatter(ReportMeta{
		Report:    "board",
		Table:     report.Table.Name,
		Snapshot:  report.Snapshot.ID,
		Projects:  len(report.Snapshot.Cards),
		Generated: report.GeneratedAt,
	}, []byte(body.String()))
	if err != nil {
		return err
	}
	_, err = w.Write(doc)
	return err
}

func escapeCell(value string) string {
	return strings.ReplaceAll(value, "|", `\|`)
}
