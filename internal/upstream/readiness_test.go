package upstream

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kingrea/workbench/internal/tier"
)

func decodePayload(t *testing.T, body string) ReadinessPayload {
	t.Helper()
	var p ReadinessPayload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal %s: %v", body, err)
	}
	return p
}

func TestReadinessPrefersDimensions(t *testing.T) {
	p := decodePayload(t, `{
		"score": 10,
		"ready": false,
		"dimensions": {
			"features": {"score": 90, "weight": 0.5},
			"personas": {"score": 70, "weight": 0.5},
			"value_path": {"weight": 0.2}
		}
	}`)
	got := tier.Resolve(p.Readiness(), tier.Readiness)
	if got.DisplayPercent != 80 || got.Label != "Good" {
		t.Fatalf("readiness = %+v, want 80 Good from dimensions", got)
	}
	if p.Ready == nil || *p.Ready {
		t.Fatalf("ready = %v, want false", p.Ready)
	}
}

func TestReadinessFallbackChain(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{`{"score": 41}`, 41},
		{`{"score": null, "readiness_score": 52}`, 52},
		{`{"cached_readiness_data": {"score": 63}}`, 63},
		{`{"cached_readiness_data": {"dimensions": {"a": {"score": 40, "weight": 1}}}, "score": 5}`, 40},
		{`{"readiness_score": "72.4"}`, 72},
	}
	for _, tc := range cases {
		got := tier.Resolve(decodePayload(t, tc.body).Readiness(), tier.Readiness)
		if !got.HasScore() || got.DisplayPercent != tc.want {
			t.Fatalf("%s: got %+v, want %d", tc.body, got, tc.want)
		}
	}
}

func TestEmptyPayloadIsNoScoreEverywhere(t *testing.T) {
	for _, body := range []string{`{}`, `null`, `{"score": null, "dimensions": null, "completeness": null}`} {
		p := decodePayload(t, body)
		for _, source := range Sources() {
			input, ok := p.Input(source)
			if !ok {
				t.Fatalf("source %s not recognised", source)
			}
			if got := tier.Resolve(input, tier.Readiness); got.HasScore() {
				t.Fatalf("%s/%s: expected NoScore, got %+v", body, source, got)
			}
		}
	}
}

func TestMalformedFieldsBecomeAbsent(t *testing.T) {
	p := decodePayload(t, `{
		"score": {"nested": true},
		"gate_score": "n/a",
		"dimensions": ["not", "an", "object"],
		"completeness": 12,
		"ready": "yes"
	}`)
	if p.Score.Valid() || p.GateScore.Valid() {
		t.Fatalf("expected malformed numbers to be absent: %+v", p)
	}
	if p.Dimensions != nil || p.Completeness != nil || p.Ready != nil {
		t.Fatalf("expected malformed blocks to be absent: %+v", p)
	}
}

func TestCompletenessIsFraction(t *testing.T) {
	p := decodePayload(t, `{"completeness": {"score": 0.75}}`)
	got := tier.Resolve(p.Completeness01(), tier.Readiness)
	if got.DisplayPercent != 75 || got.Label != "Fair" {
		t.Fatalf("completeness = %+v, want 75 Fair", got)
	}
}

func TestGateScore(t *testing.T) {
	p := decodePayload(t, `{"gate_score": 61}`)
	got := tier.Resolve(p.Gate(), tier.Gate)
	if got.ColorToken != "amber" {
		t.Fatalf("gate color = %q, want amber", got.ColorToken)
	}
}

func TestUnknownSource(t *testing.T) {
	if _, ok := (ReadinessPayload{}).Input("velocity"); ok {
		t.Fatalf("expected unknown source to be rejected")
	}
}

func TestDimensionsNamesSorted(t *testing.T) {
	p := decodePayload(t, `{"dimensions": {"b": {"score": 1}, "a": {"score": 2}, "c": 4}}`)
	if diff := cmp.Diff([]string{"a", "b"}, p.Dimensions.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestNumberMarshalRoundTrip(t *testing.T) {
	p := ReadinessPayload{Score: NumberOf(42.5)}
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back := decodePayload(t, string(data))
	if v, ok := back.Score.Value(); !ok || v != 42.5 {
		t.Fatalf("score = %v/%v, want 42.5", v, ok)
	}
	if back.GateScore.Valid() {
		t.Fatalf("absent gate score should stay absent")
	}
}

func TestDecodeProjectsShapes(t *testing.T) {
	bare := `[{"id": "p1", "name": "Acme", "client_name": "Acme Corp", "readiness_score": 55, "updated_at": "2026-10-01T10:00:00Z"}, {"name": "no id"}]`
	projects, err := DecodeProjects([]byte(bare))
	if err != nil {
		t.Fatalf("decode bare: %v", err)
	}
	if len(projects) != 1 || projects[0].Client != "Acme Corp" || projects[0].UpdatedAt.IsZero() {
		t.Fatalf("unexpected bare decode: %+v", projects)
	}
	wrapped := `{"projects": [{"id": 7, "name": "Globex", "gate_score": 81}]}`
	projects, err = DecodeProjects([]byte(wrapped))
	if err != nil {
		t.Fatalf("decode wrapped: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "7" {
		t.Fatalf("unexpected wrapped decode: %+v", projects)
	}
	got := tier.Resolve(projects[0].Payload().Gate(), tier.Gate)
	if got.Label != "Ready" {
		t.Fatalf("gate from summary = %+v", got)
	}
	if _, err := DecodeProjects([]byte(`"nope"`)); err == nil {
		t.Fatalf("expected error for non-list body")
	}
}
