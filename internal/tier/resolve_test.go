package tier

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testTable = MustThresholds(
	Threshold{Min: 80, Label: "Good", ColorToken: "green"},
	Threshold{Min: 50, Label: "Fair", ColorToken: "yellow"},
	Threshold{Min: 0, Label: "Poor", ColorToken: "red"},
)

func TestResolveDisplayPercentRoundsRawScore(t *testing.T) {
	for raw := 0.0; raw <= 100; raw += 0.25 {
		got := Resolve(ScoreInput{RawScore: Float(raw)}, testTable)
		want := int(math.Round(raw))
		if got.DisplayPercent != want {
			t.Fatalf("raw %v: display = %d, want %d", raw, got.DisplayPercent, want)
		}
		if got.DisplayPercent < 0 || got.DisplayPercent > 100 {
			t.Fatalf("raw %v: display %d out of range", raw, got.DisplayPercent)
		}
	}
}

func TestResolveRoundsHalfAwayFromZero(t *testing.T) {
	cases := map[float64]int{
		44.5:  45,
		44.49: 44,
		0.5:   1,
		99.5:  100,
	}
	for raw, want := range cases {
		if got := Resolve(ScoreInput{RawScore: Float(raw)}, testTable).DisplayPercent; got != want {
			t.Fatalf("raw %v: display = %d, want %d", raw, got, want)
		}
	}
}

func TestResolveClampsOutOfRange(t *testing.T) {
	for _, raw := range []float64{-1e9, -0.1, 100.01, 250, 1e12} {
		got := Resolve(ScoreInput{RawScore: Float(raw)}, testTable)
		if got.BarFraction < 0 || got.BarFraction > 1 {
			t.Fatalf("raw %v: bar fraction %v outside [0,1]", raw, got.BarFraction)
		}
		if got.DisplayPercent < 0 || got.DisplayPercent > 100 {
			t.Fatalf("raw %v: display %d outside [0,100]", raw, got.DisplayPercent)
		}
	}
	if got := Resolve(ScoreInput{RawScore: Float(140)}, testTable); got.BarFraction != 1 || got.Label != "Good" {
		t.Fatalf("over-range score = %+v, want full bar in top tier", got)
	}
	if got := Resolve(ScoreInput{RawScore: Float(-20)}, testTable); got.BarFraction != 0 || got.Label != "Poor" {
		t.Fatalf("negative score = %+v, want empty bar in catch-all tier", got)
	}
}

func TestResolveFractionScaleOverflowClamps(t *testing.T) {
	got := Resolve(ScoreInput{RawScore: Float(1.7), Scale: ScaleFraction}, testTable)
	if got.DisplayPercent != 100 || got.BarFraction != 1 {
		t.Fatalf("fraction 1.7 = %+v, want clamped to 100", got)
	}
}

func TestResolveNoScore(t *testing.T) {
	tables := []Thresholds{testTable, Gate, Readiness, Completeness}
	for _, table := range tables {
		got := Resolve(ScoreInput{}, table)
		if got.HasScore() {
			t.Fatalf("expected NoScore, got %+v", got)
		}
		if got != NoScore {
			t.Fatalf("expected the NoScore value, got %+v", got)
		}
		if got.Display() != NoScoreDisplay {
			t.Fatalf("display = %q, want %q", got.Display(), NoScoreDisplay)
		}
	}
}

func TestResolveNaNRawScoreIsNoScore(t *testing.T) {
	if got := Resolve(ScoreInput{RawScore: Float(math.NaN())}, testTable); got.HasScore() {
		t.Fatalf("NaN raw score should be NoScore, got %+v", got)
	}
}

func TestResolveZeroIsAScore(t *testing.T) {
	got := Resolve(ScoreInput{RawScore: Float(0)}, testTable)
	if !got.HasScore() {
		t.Fatalf("zero must resolve to a numeric result")
	}
	if got.Label != "Poor" || got.Display() != "0%" {
		t.Fatalf("zero = %+v", got)
	}
}

func TestResolveComponentsTakePrecedence(t *testing.T) {
	input := ScoreInput{
		RawScore: Float(10),
		Components: map[string]Component{
			"a": {Score: Float(90), Weight: Float(1.0)},
		},
	}
	got := Resolve(input, testTable)
	if got.Effective != 90 || got.DisplayPercent != 90 || got.Label != "Good" {
		t.Fatalf("components should supersede raw score, got %+v", got)
	}
}

func TestResolveSkipsPartialComponents(t *testing.T) {
	input := ScoreInput{
		Components: map[string]Component{
			"a": {Score: Float(50), Weight: Float(0.5)},
			"b": {Weight: Float(0.5)},
			"c": {Score: Float(70)},
			"d": {Score: Float(math.NaN()), Weight: Float(0.2)},
		},
	}
	got := Resolve(input, testTable)
	if got.Effective != 25 {
		t.Fatalf("effective = %v, want 25", got.Effective)
	}
}

func TestResolveEmptyComponentsFallBackToRaw(t *testing.T) {
	got := Resolve(ScoreInput{RawScore: Float(62), Components: map[string]Component{}}, testTable)
	if got.DisplayPercent != 62 {
		t.Fatalf("display = %d, want 62", got.DisplayPercent)
	}
}

func TestResolveBoundaryIsInclusive(t *testing.T) {
	if got := Resolve(ScoreInput{RawScore: Float(80)}, testTable); got.Label != "Good" {
		t.Fatalf("80 = %q, want Good", got.Label)
	}
	if got := Resolve(ScoreInput{RawScore: Float(79)}, testTable); got.Label != "Fair" {
		t.Fatalf("79 = %q, want Fair", got.Label)
	}
	if got := Resolve(ScoreInput{RawScore: Float(79.5)}, testTable); got.Label != "Good" || got.DisplayPercent != 80 {
		t.Fatalf("79.5 = %+v, want rounded 80 in Good", got)
	}
}

func TestResolveExamples(t *testing.T) {
	cases := []struct {
		name  string
		input ScoreInput
		want  Result
	}{
		{
			name:  "percent",
			input: ScoreInput{RawScore: Float(45)},
			want:  Result{Scored: true, Effective: 45, DisplayPercent: 45, Label: "Fair", ColorToken: "yellow", BarFraction: 0.45},
		},
		{
			name:  "fraction",
			input: ScoreInput{RawScore: Float(0.75), Scale: ScaleFraction},
			want:  Result{Scored: true, Effective: 75, DisplayPercent: 75, Label: "Fair", ColorToken: "yellow", BarFraction: 0.75},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resolve(tc.input, testTable)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Resolve mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	components := map[string]Component{"a": {Score: Float(40), Weight: Float(2)}}
	Resolve(ScoreInput{Components: components}, testTable)
	if *components["a"].Score != 40 || *components["a"].Weight != 2 {
		t.Fatalf("components mutated: %+v", components["a"])
	}
}

func TestResolvePanicsOnUnbuiltTable(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for zero-value thresholds")
		}
	}()
	Resolve(ScoreInput{RawScore: Float(10)}, Thresholds{})
}

func TestNewThresholdsValidation(t *testing.T) {
	if _, err := NewThresholds(); !errors.Is(err, ErrEmptyThresholds) {
		t.Fatalf("empty table err = %v, want ErrEmptyThresholds", err)
	}
	if _, err := NewThresholds(Threshold{Min: 50, Label: "Fair"}, Threshold{Min: 80, Label: "Good"}); !errors.Is(err, ErrNoCatchAll) {
		t.Fatalf("missing catch-all err = %v, want ErrNoCatchAll", err)
	}
	if _, err := NewThresholds(Threshold{Min: 0, Label: "a"}, Threshold{Min: 0, Label: "b"}); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate min err = %v", err)
	}
	if _, err := NewThresholds(Threshold{Min: math.NaN()}, Threshold{Min: 0}); err == nil {
		t.Fatalf("expected NaN min to be rejected")
	}
}

func TestNewThresholdsSortsDescending(t *testing.T) {
	table, err := NewThresholds(
		Threshold{Min: 0, Label: "Poor"},
		Threshold{Min: 80, Label: "Good"},
		Threshold{Min: 50, Label: "Fair"},
	)
	if err != nil {
		t.Fatalf("NewThresholds: %v", err)
	}
	var labels []string
	for _, entry := range table.Entries() {
		labels = append(labels, entry.Label)
	}
	if diff := cmp.Diff([]string{"Good", "Fair", "Poor"}, labels); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if table.Index("Fair") != 1 || table.Index("Missing") != -1 {
		t.Fatalf("unexpected Index results")
	}
}

func TestCatchAllMayBeNegative(t *testing.T) {
	table := MustThresholds(Threshold{Min: 60, Label: "ok"}, Threshold{Min: -10, Label: "low"})
	if got := Resolve(ScoreInput{RawScore: Float(0)}, table); got.Label != "low" {
		t.Fatalf("label = %q, want low", got.Label)
	}
}

func TestPresetsMatchObservedTables(t *testing.T) {
	gate := Resolve(ScoreInput{RawScore: Float(65)}, Presets()["gate"])
	if gate.ColorToken != "amber" {
		t.Fatalf("gate 65 color = %q, want amber", gate.ColorToken)
	}
	completeness := Resolve(ScoreInput{RawScore: Float(0.19), Scale: ScaleFraction}, Presets()["completeness"])
	if completeness.Label != "Poor" {
		t.Fatalf("completeness 19%% label = %q, want Poor", completeness.Label)
	}
	if Completeness.Len() != 4 {
		t.Fatalf("completeness tiers = %d, want 4", Completeness.Len())
	}
}

func TestParseScale(t *testing.T) {
	if s, err := ParseScale("Fraction"); err != nil || s != ScaleFraction {
		t.Fatalf("ParseScale(Fraction) = %v, %v", s, err)
	}
	if s, err := ParseScale(""); err != nil || s != ScalePercent {
		t.Fatalf("ParseScale(\"\") = %v, %v", s, err)
	}
	if _, err := ParseScale("permille"); err == nil {
		t.Fatalf("expected error for unknown scale")
	}
}

func TestResultJSON(t *testing.T) {
	data, err := json.Marshal(NoScore)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"has_score":false`) || !strings.Contains(string(data), `"display":"—"`) {
		t.Fatalf("unexpected NoScore JSON: %s", data)
	}
	scored := Resolve(ScoreInput{RawScore: Float(45)}, testTable)
	data, err = json.Marshal(scored)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != scored {
		t.Fatalf("decoded %+v, want %+v", decoded, scored)
	}
}

func TestResolveComponentsAreOrderIndependent(t *testing.T) {
	input := ScoreInput{Components: map[string]Component{
		"budget":   {Score: Float(33.3), Weight: Float(0.15)},
		"scope":    {Score: Float(71.7), Weight: Float(0.35)},
		"team":     {Score: Float(58.1), Weight: Float(0.3)},
		"timeline": {Score: Float(12.9), Weight: Float(0.2)},
	}}
	want := Resolve(input, testTable)
	for i := 0; i < 500; i++ {
		if got := Resolve(input, testTable); got != want {
			t.Fatalf("run %d: got %+v, want %+v", i, got, want)
		}
	}

	cancelling := ScoreInput{Components: map[string]Component{
		"a": {Score: Float(1e17), Weight: Float(1)},
		"b": {Score: Float(-1e17), Weight: Float(1)},
		"c": {Score: Float(60), Weight: Float(1)},
		"d": {Score: Float(4), Weight: Float(0)},
	}}
	for i := 0; i < 200; i++ {
		got := Resolve(cancelling, testTable)
		if got.Effective != 60 || got.DisplayPercent != 60 || got.Label != "Fair" {
			t.Fatalf("run %d: got %+v, want effective 60 Fair", i, got)
		}
	}
}
