package board

import (
	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/tier"
)

// NoScoreColumn collects cards without a score on the grouping table.
const NoScoreColumn = "No score"

// Column is one kanban lane.
type Column struct {
	Label      string `json:"label"`
	ColorToken string `json:"color,omitempty"`
	Cards      []Card `json:"cards"`
}

// Columns groups cards by their tier on the given table, one column per
// tier in the table's descending order plus a trailing NoScoreColumn.
// Empty columns are kept so the board layout stays stable.
func Columns(snapshot Snapshot, table config.TierTable) []Column {
	entries := table.Thresholds.Entries()
	columns := make([]Column, 0, len(entries)+1)
	for _, entry := range entries {
		columns = append(columns, Column{Label: entry.Label, ColorToken: entry.ColorToken})
	}
	noScore := Column{Label: NoScoreColumn}
	for _, card := range snapshot.Cards {
		result := card.Score(table.Name)
		if !result.HasScore() {
			noScore.Cards = append(noScore.Cards, card)
			continue
		}
		idx := indexOf(entries, result)
		if idx < 0 {
			noScore.Cards = append(noScore.Cards, card)
			continue
		}
		columns[idx].Cards = append(columns[idx].Cards, card)
	}
	return append(columns, noScore)
}

// Counts returns how many cards sit in each tier of the table, keyed by
// label, with NoScoreColumn for unscored cards.
func Counts(snapshot Snapshot, table config.TierTable) map[string]int {
	counts := make(map[string]int)
	for _, column := range Columns(snapshot, table) {
		counts[column.Label] += len(column.Cards)
	}
	return counts
}

// indexOf repeats the resolver's walk on the rounded percent so a card
// lands in the column whose threshold it actually met.
func indexOf(entries []tier.Threshold, result tier.Result) int {
	for i, entry := range entries {
		if float64(result.DisplayPercent) >= entry.Min {
			return i
		}
	}
	return -1
}
