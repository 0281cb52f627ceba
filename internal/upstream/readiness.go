// Package upstream decodes the JSON returned by the workbench backend. The
// backend has grown several response shapes over time (gate_score,
// readiness_score, cached_readiness_data, baseline completeness as a 0–1
// fraction), so every field here is optional and decoding is lenient: a
// malformed field is treated as missing rather than failing the payload.
package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/kingrea/workbench/internal/tier"
)

// Score sources understood by Input.
const (
	SourceReadiness    = "readiness"
	SourceGate         = "gate"
	SourceCompleteness = "completeness"
)

// Sources lists every known score source.
func Sources() []string {
	return []string{SourceReadiness, SourceGate, SourceCompleteness}
}

// Dimension is one weighted sub-score (features, personas, value path...).
type Dimension struct {
	Score  Number `json:"score"`
	Weight Number `json:"weight"`
}

// Dimensions maps dimension name to its weighted score.
type Dimensions map[string]Dimension

// UnmarshalJSON keeps whatever entries can be read and drops the rest.
func (d *Dimensions) UnmarshalJSON(data []byte) error {
	*d = nil
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	out := make(Dimensions, len(raw))
	for name, body := range raw {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
			continue
		}
		var dim Dimension
		decodeField(fields, "score", &dim.Score)
		decodeField(fields, "weight", &dim.Weight)
		out[name] = dim
	}
	*d = out
	return nil
}

// Components converts to the resolver's representation.
func (d Dimensions) Components() map[string]tier.Component {
	if len(d) == 0 {
		return nil
	}
	out := make(map[string]tier.Component, len(d))
	for name, dim := range d {
		out[name] = tier.Component{Score: dim.Score.Ptr(), Weight: dim.Weight.Ptr()}
	}
	return out
}

// Names returns dimension names in sorted order.
func (d Dimensions) Names() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CachedReadiness is the snapshot some project endpoints embed.
type CachedReadiness struct {
	Score      Number     `json:"score"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
}

// Completeness is the baseline completeness block. Score is a 0–1 fraction.
type Completeness struct {
	Score Number `json:"score"`
}

// ReadinessPayload is the body of GET /v1/projects/{id}/readiness.
type ReadinessPayload struct {
	Score          Number           `json:"score"`
	Ready          *bool            `json:"ready,omitempty"`
	Dimensions     Dimensions       `json:"dimensions,omitempty"`
	Breakdown      json.RawMessage  `json:"breakdown,omitempty"`
	GateScore      Number           `json:"gate_score"`
	ReadinessScore Number           `json:"readiness_score"`
	Cached         *CachedReadiness `json:"cached_readiness_data,omitempty"`
	Completeness   *Completeness    `json:"completeness,omitempty"`
}

// UnmarshalJSON reads each known field independently.
func (p *ReadinessPayload) UnmarshalJSON(data []byte) error {
	*p = ReadinessPayload{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("upstream: readiness payload is not an object: %w", err)
	}
	decodeField(raw, "score", &p.Score)
	decodeField(raw, "gate_score", &p.GateScore)
	decodeField(raw, "readiness_score", &p.ReadinessScore)
	decodeField(raw, "dimensions", &p.Dimensions)
	var ready bool
	if decodeField(raw, "ready", &ready) {
		p.Ready = &ready
	}
	if body, ok := raw["breakdown"]; ok && !isNull(body) {
		p.Breakdown = append(json.RawMessage(nil), body...)
	}
	if fields, ok := objectField(raw, "cached_readiness_data"); ok {
		cached := &CachedReadiness{}
		decodeField(fields, "score", &cached.Score)
		decodeField(fields, "dimensions", &cached.Dimensions)
		p.Cached = cached
	}
	if fields, ok := objectField(raw, "completeness"); ok {
		completeness := &Completeness{}
		decodeField(fields, "score", &completeness.Score)
		p.Completeness = completeness
	}
	return nil
}

// Input builds the resolver input for one score source. Unknown sources
// report false.
func (p ReadinessPayload) Input(source string) (tier.ScoreInput, bool) {
	switch source {
	case SourceReadiness:
		return p.Readiness(), true
	case SourceGate:
		return p.Gate(), true
	case SourceCompleteness:
		return p.Completeness01(), true
	default:
		return tier.ScoreInput{}, false
	}
}

// Readiness prefers the dimensional breakdown, then the top-level score,
// then readiness_score, then the cached snapshot.
func (p ReadinessPayload) Readiness() tier.ScoreInput {
	input := tier.ScoreInput{Scale: tier.ScalePercent}
	input.Components = p.EffectiveDimensions().Components()
	var cached Number
	if p.Cached != nil {
		cached = p.Cached.Score
	}
	input.RawScore = firstValid(p.Score, p.ReadinessScore, cached).Ptr()
	return input
}

// Gate reads gate_score on the 0–100 scale.
func (p ReadinessPayload) Gate() tier.ScoreInput {
	return tier.ScoreInput{RawScore: p.GateScore.Ptr(), Scale: tier.ScalePercent}
}

// Completeness01 reads the baseline completeness fraction.
func (p ReadinessPayload) Completeness01() tier.ScoreInput {
	input := tier.ScoreInput{Scale: tier.ScaleFraction}
	if p.Completeness != nil {
		input.RawScore = p.Completeness.Score.Ptr()
	}
	return input
}

// EffectiveDimensions returns the top-level dimensions or, failing that,
// the cached ones.
func (p ReadinessPayload) EffectiveDimensions() Dimensions {
	if len(p.Dimensions) > 0 {
		return p.Dimensions
	}
	if p.Cached != nil {
		return p.Cached.Dimensions
	}
	return nil
}

func decodeField(raw map[string]json.RawMessage, key string, dst any) bool {
	body, ok := raw[key]
	if !ok || isNull(body) {
		return false
	}
	return json.Unmarshal(body, dst) == nil
}

func objectField(raw map[string]json.RawMessage, key string) (map[string]json.RawMessage, bool) {
	body, ok := raw[key]
	if !ok || isNull(body) {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func isNull(body json.RawMessage) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
