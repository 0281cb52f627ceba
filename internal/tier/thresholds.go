package tier

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrEmptyThresholds indicates a table with no entries.
	ErrEmptyThresholds = errors.New("tier: threshold table is empty")
	// ErrNoCatchAll indicates a table whose lowest entry does not cover 0.
	ErrNoCatchAll = errors.New("tier: threshold table needs a catch-all entry with min <= 0")
)

// Threshold is one row of a tier table. Min is an inclusive lower bound in
// percent. ColorToken is opaque to this package.
type Threshold struct {
	Min        float64 `json:"min" yaml:"min"`
	Label      string  `json:"label" yaml:"label"`
	ColorToken string  `json:"color" yaml:"color"`
}

// Thresholds is a validated tier table sorted by descending Min. The zero
// value is not usable; build tables with NewThresholds or MustThresholds.
type Thresholds struct {
	entries []Threshold
}

// NewThresholds sorts and validates the entries. The returned error is a
// configuration error and should stop startup.
func NewThresholds(entries ...Threshold) (Thresholds, error) {
	if len(entries) == 0 {
		return Thresholds{}, ErrEmptyThresholds
	}
	sorted := make([]Threshold, len(entries))
	for i, entry := range entries {
		if math.IsNaN(entry.Min) || math.IsInf(entry.Min, 0) {
			return Thresholds{}, fmt.Errorf("tier: entry %d: min must be a finite number", i)
		}
		entry.Label = strings.TrimSpace(entry.Label)
		entry.ColorToken = strings.TrimSpace(entry.ColorToken)
		sorted[i] = entry
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Min > sorted[j].Min
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Min == sorted[i-1].Min {
			return Thresholds{}, fmt.Errorf("tier: duplicate min %g (%q and %q)", sorted[i].Min, sorted[i-1].Label, sorted[i].Label)
		}
	}
	if sorted[len(sorted)-1].Min > 0 {
		return Thresholds{}, ErrNoCatchAll
	}
	return Thresholds{entries: sorted}, nil
}

// MustThresholds is NewThresholds for package-level tables. It panics on a
// malformed table.
func MustThresholds(entries ...Threshold) Thresholds {
	t, err := NewThresholds(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Entries returns a copy of the table in evaluation order.
func (t Thresholds) Entries() []Threshold {
	return append([]Threshold(nil), t.entries...)
}

// Len reports the number of tiers.
func (t Thresholds) Len() int {
	return len(t.entries)
}

// IsZero reports whether the table was never built.
func (t Thresholds) IsZero() bool {
	return len(t.entries) == 0
}

// Lookup returns the first entry whose Min is at or below percent. Values
// below every bound fall into the catch-all tier.
func (t Thresholds) Lookup(percent float64) Threshold {
	for _, entry := range t.entries {
		if percent >= entry.Min {
			return entry
		}
	}
	return t.entries[len(t.entries)-1]
}

// Index returns the position of the tier with the given label, or -1.
func (t Thresholds) Index(label string) int {
	for i, entry := range t.entries {
		if entry.Label == label {
			return i
		}
	}
	return -1
}
