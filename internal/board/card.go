// Package board turns backend projects into resolved cards, groups them into
// tier columns and tracks how each project's tier moves between refreshes.
package board

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/workbench/internal/config"
	"github.com/kingrea/workbench/internal/tier"
	"github.com/kingrea/workbench/internal/upstream"
)

// Entry is the raw material for one card: the list item plus, when the
// readiness call succeeded, the full payload.
type Entry struct {
	Project   upstream.ProjectSummary
	Readiness *upstream.ReadinessPayload
	Err       error
}

// DimensionRow is one resolved dimension of the readiness breakdown.
type DimensionRow struct {
	Name   string      `json:"name"`
	Weight *float64    `json:"weight,omitempty"`
	Result tier.Result `json:"result"`
}

// Card is a project resolved against every configured tier table.
type Card struct {
	ProjectID  string                 `json:"project_id"`
	Name       string                 `json:"name"`
	Client     string                 `json:"client,omitempty"`
	Stage      string                 `json:"stage,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at,omitempty"`
	Scores     map[string]tier.Result `json:"scores"`
	Dimensions []DimensionRow         `json:"dimensions,omitempty"`
	Ready      *bool                  `json:"ready,omitempty"`
	// Stale is set when the readiness call failed and the list-level
	// scores were used instead.
	Stale bool   `json:"stale,omitempty"`
	Error string `json:"error,omitempty"`
}

// Score returns the card's result for a table, or NoScore.
func (c Card) Score(table string) tier.Result {
	if c.Scores == nil {
		return tier.NoScore
	}
	return c.Scores[table]
}

// Snapshot is the whole board at one instant.
type Snapshot struct {
	ID      string    `json:"id"`
	TakenAt time.Time `json:"taken_at"`
	Cards   []Card    `json:"cards"`
}

// Card looks a project up by ID.
func (s Snapshot) Card(projectID string) (Card, bool) {
	for _, card := range s.Cards {
		if card.ProjectID == projectID {
			return card, true
		}
	}
	return Card{}, false
}

// Build resolves every entry against every table. Cards are ordered by name,
// then ID.
func Build(entries []Entry, tables []config.TierTable, now time.Time) Snapshot {
	cards := make([]Card, 0, len(entries))
	for _, entry := range entries {
		cards = append(cards, buildCard(entry, tables))
	}
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := strings.ToLower(cards[i].Name), strings.ToLower(cards[j].Name)
		if a != b {
			return a < b
		}
		return cards[i].ProjectID < cards[j].ProjectID
	})
	return Snapshot{ID: uuid.NewString(), TakenAt: now.UTC(), Cards: cards}
}

func buildCard(entry Entry, tables []config.TierTable) Card {
	project := entry.Project
	card := Card{
		ProjectID: project.ID,
		Name:      project.DisplayName(),
		Client:    project.Client,
		Stage:     project.Stage,
		UpdatedAt: project.UpdatedAt,
		Scores:    make(map[string]tier.Result, len(tables)),
	}
	var payload upstream.ReadinessPayload
	if entry.Readiness != nil {
		payload = entry.Readiness.WithListScores(project)
		card.Ready = payload.Ready
	} else {
		payload = project.Payload()
		card.Stale = entry.Err != nil
	}
	if entry.Err != nil {
		card.Error = entry.Err.Error()
	}
	for _, table := range tables {
		input, ok := payload.Input(table.Source)
		if !ok {
			continue
		}
		card.Scores[table.Name] = tier.Resolve(input, table.Thresholds)
	}
	if rows := dimensionRows(payload.EffectiveDimensions(), tables); len(rows) > 0 {
		card.Dimensions = rows
	}
	return card
}

// dimensionRows resolves each dimension on its own against the first
// readiness-sourced table.
func dimensionRows(dims upstream.Dimensions, tables []config.TierTable) []DimensionRow {
	if len(dims) == 0 {
		return nil
	}
	var thresholds tier.Thresholds
	for _, table := range tables {
		if table.Source == upstream.SourceReadiness {
			thresholds = table.Thresholds
			break
		}
	}
	if thresholds.IsZero() {
		thresholds = tier.Readiness
	}
	rows := make([]DimensionRow, 0, len(dims))
	for _, name := range dims.Names() {
		dim := dims[name]
		rows = append(rows, DimensionRow{
			Name:   name,
			Weight: dim.Weight.Ptr(),
			Result: tier.Resolve(tier.ScoreInput{RawScore: dim.Score.Ptr(), Scale: tier.ScalePercent}, thresholds),
		})
	}
	return rows
}
