package board

import (
	"fmt"
	"math"
	"sort"

	"github.com/kingrea/workbench/internal/tier"
)

// Transition records a project moving between tiers on one table.
type Transition struct {
	ProjectID string      `json:"project_id"`
	Name      string      `json:"name"`
	Table     string      `json:"table"`
	From      tier.Result `json:"from"`
	To        tier.Result `json:"to"`
	Trend     Trend       `json:"trend"`
}

// String renders "Acme readiness: Fair → Good (45% → 82%)".
func (t Transition) String() string {
	return fmt.Sprintf("%s %s: %s → %s (%s → %s)",
		t.Name, t.Table,
		labelOf(t.From), labelOf(t.To),
		t.From.Display(), t.To.Display(),
	)
}

func labelOf(r tier.Result) string {
	if !r.HasScore() {
		return NoScoreColumn
	}
	return r.Label
}

// Diff lists tier changes between two snapshots. Projects absent from prev
// are new and produce no transition; projects absent from next are ignored.
func Diff(prev, next Snapshot) []Transition {
	previous := make(map[string]Card, len(prev.Cards))
	for _, card := range prev.Cards {
		previous[card.ProjectID] = card
	}
	var out []Transition
	for _, card := range next.Cards {
		old, ok := previous[card.ProjectID]
		if !ok {
			continue
		}
		for _, table := range sortedTables(card.Scores) {
			before, had := old.Scores[table]
			if !had {
				continue
			}
			after := card.Scores[table]
			if before.Same(after) {
				continue
			}
			out = append(out, Transition{
				ProjectID: card.ProjectID,
				Name:      card.Name,
				Table:     table,
				From:      before,
				To:        after,
				Trend:     ComputeTrend(before, after),
			})
		}
	}
	return out
}

func sortedTables(scores map[string]tier.Result) []string {
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Direction of a score change.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// Trend compares two results of the same table.
type Trend struct {
	Direction Direction `json:"direction"`
	// Delta is in display percentage points; zero when either side has no
	// score.
	Delta float64 `json:"delta"`
	From  float64 `json:"from"`
	To    float64 `json:"to"`
}

// Arrow renders the direction as ↑, ↓ or an empty string.
func (t Trend) Arrow() string {
	switch t.Direction {
	case Up:
		return "↑"
	case Down:
		return "↓"
	default:
		return ""
	}
}

// ComputeTrend compares effective scores rounded to two places, so sub-point
// drift does not flip the arrow.
func ComputeTrend(prev, curr tier.Result) Trend {
	if !prev.HasScore() || !curr.HasScore() {
		return Trend{Direction: Flat}
	}
	d := round(curr.Effective-prev.Effective, 2)
	dir := Flat
	if d > 0.00001 {
		dir = Up
	} else if d < -0.00001 {
		dir = Down
	}
	return Trend{
		Direction: dir,
		Delta:     d,
		From:      round(prev.Effective, 2),
		To:        round(curr.Effective, 2),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
