// Package tier turns readiness and completeness scores into presentation
// tiers. A score (or a weighted set of dimension scores) is normalised to the
// 0–100 range, clamped, rounded half away from zero, and matched against a
// caller-supplied threshold table to produce a label, an opaque colour token,
// and a progress-bar fill fraction.
//
// Threshold tables are validated once when they are built; Resolve itself has
// no failure mode and performs no I/O, so it is safe to call from any number
// of goroutines.
package tier
