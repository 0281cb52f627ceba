package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ProjectSummary is one entry of GET /v1/projects.
type ProjectSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Client         string    `json:"client,omitempty"`
	Stage          string    `json:"stage,omitempty"`
	ReadinessScore Number    `json:"readiness_score"`
	GateScore      Number    `json:"gate_score"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON tolerates client given as client_name and unparseable
// timestamps.
func (s *ProjectSummary) UnmarshalJSON(data []byte) error {
	*s = ProjectSummary{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("upstream: project is not an object: %w", err)
	}
	decodeField(raw, "id", &s.ID)
	if s.ID == "" {
		var numeric json.Number
		if decodeField(raw, "id", &numeric) {
			s.ID = numeric.String()
		}
	}
	decodeField(raw, "name", &s.Name)
	if !decodeField(raw, "client", &s.Client) {
		decodeField(raw, "client_name", &s.Client)
	}
	decodeField(raw, "stage", &s.Stage)
	decodeField(raw, "readiness_score", &s.ReadinessScore)
	decodeField(raw, "gate_score", &s.GateScore)
	var updated string
	if decodeField(raw, "updated_at", &updated) {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(updated)); err == nil {
			s.UpdatedAt = t.UTC()
		}
	}
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	return nil
}

// DisplayName falls back to the ID.
func (s ProjectSummary) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}

// Payload turns the list-level scores into a readiness payload, used when
// the per-project readiness call fails.
func (s ProjectSummary) Payload() ReadinessPayload {
	return ReadinessPayload{
		ReadinessScore: s.ReadinessScore,
		GateScore:      s.GateScore,
	}
}

// WithListScores fills gate_score and readiness_score from the project list
// when the readiness payload leaves them out.
func (p ReadinessPayload) WithListScores(s ProjectSummary) ReadinessPayload {
	p.GateScore = firstValid(p.GateScore, s.GateScore)
	p.ReadinessScore = firstValid(p.ReadinessScore, s.ReadinessScore)
	return p
}

// DecodeProjects accepts either a bare array or {"projects": [...]}.
func DecodeProjects(data []byte) ([]ProjectSummary, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("upstream: decode project list: %w", err)
		}
	} else {
		var envelope struct {
			Projects []json.RawMessage `json:"projects"`
			Items    []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("upstream: decode project list: %w", err)
		}
		items = envelope.Projects
		if items == nil {
			items = envelope.Items
		}
	}
	projects := make([]ProjectSummary, 0, len(items))
	for _, item := range items {
		var p ProjectSummary
		if err := json.Unmarshal(item, &p); err != nil || p.ID == "" {
			continue
		}
		projects = append(projects, p)
	}
	return projects, nil
}
