package tier

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// NoScoreDisplay is how an absent score is shown.
const NoScoreDisplay = "—"

// Scale declares the unit of ScoreInput.RawScore.
type Scale int

const (
	// ScalePercent means RawScore is already 0–100.
	ScalePercent Scale = iota
	// ScaleFraction means RawScore is 0–1 and gets multiplied by 100.
	ScaleFraction
)

// ParseScale accepts "percent" or "fraction" (case-insensitive). An empty
// string is percent.
func ParseScale(value string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "percent", "pct", "100":
		return ScalePercent, nil
	case "fraction", "ratio", "1":
		return ScaleFraction, nil
	default:
		return ScalePercent, fmt.Errorf("tier: unknown scale %q (want percent or fraction)", value)
	}
}

func (s Scale) String() string {
	if s == ScaleFraction {
		return "fraction"
	}
	return "percent"
}

// Component is one weighted dimension. Score is 0–100, Weight is a
// dimensionless multiplier. Either field may be absent.
type Component struct {
	Score  *float64 `json:"score" yaml:"score"`
	Weight *float64 `json:"weight" yaml:"weight"`
}

// ScoreInput is built fresh from upstream data for every resolution.
type ScoreInput struct {
	RawScore   *float64
	Scale      Scale
	Components map[string]Component
}

// Float returns a pointer to v, for building inputs inline.
func Float(v float64) *float64 {
	return &v
}

// Result is the outcome of Resolve. The zero value is NoScore.
type Result struct {
	Scored         bool    `json:"has_score"`
	Effective      float64 `json:"effective"`
	DisplayPercent int     `json:"display_percent"`
	Label          string  `json:"label,omitempty"`
	ColorToken     string  `json:"color,omitempty"`
	BarFraction    float64 `json:"bar_fraction"`
}

// NoScore is returned when neither a raw score nor weighted components exist.
var NoScore = Result{}

// HasScore distinguishes a numeric result from NoScore.
func (r Result) HasScore() bool {
	return r.Scored
}

// Display renders "45%" or the em-dash placeholder.
func (r Result) Display() string {
	if !r.Scored {
		return NoScoreDisplay
	}
	return fmt.Sprintf("%d%%", r.DisplayPercent)
}

// Same reports whether two results land in the same tier.
func (r Result) Same(other Result) bool {
	if r.Scored != other.Scored {
		return false
	}
	return r.Label == other.Label && r.ColorToken == other.ColorToken
}

// MarshalJSON adds the rendered display string.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	return json.Marshal(struct {
		plain
		Display string `json:"display"`
	}{plain: plain(r), Display: r.Display()})
}

// Resolve maps input onto the table. Weighted components, when present,
// take precedence over RawScore. The tier is chosen on the rounded display
// percent so the label never disagrees with the number shown next to it.
func Resolve(input ScoreInput, thresholds Thresholds) Result {
	if thresholds.IsZero() {
		panic("tier: Resolve called with an unbuilt threshold table")
	}
	effective, ok := effectiveScore(input)
	if !ok {
		return NoScore
	}
	clamped := clamp(effective, 0, 100)
	display := int(math.Round(clamped))
	entry := thresholds.Lookup(float64(display))
	return Result{
		Scored:         true,
		Effective:      clamped,
		DisplayPercent: display,
		Label:          entry.Label,
		ColorToken:     entry.ColorToken,
		BarFraction:    clamped / 100,
	}
}

// WeightedSum adds score*weight over components carrying both fields.
// Components missing a field, or holding a non-finite value, are skipped.
// Terms are added in name order so the sum does not depend on map order.
func WeightedSum(components map[string]Component) float64 {
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)
	var sum float64
	for _, name := range names {
		c := components[name]
		if !finite(c.Score) || !finite(c.Weight) {
			continue
		}
		sum += *c.Score * *c.Weight
	}
	return sum
}

func effectiveScore(input ScoreInput) (float64, bool) {
	if len(input.Components) > 0 {
		return WeightedSum(input.Components), true
	}
	if !finite(input.RawScore) {
		return 0, false
	}
	score := *input.RawScore
	if input.Scale == ScaleFraction {
		score *= 100
	}
	return score, true
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
