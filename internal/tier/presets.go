package tier

// Built-in tables for the three visual contexts on the dashboard. Config
// may override any of them by name.
var (
	// Gate is the red/amber/green table used for phase gate scores.
	Gate = MustThresholds(
		Threshold{Min: 80, Label: "Ready", ColorToken: "green"},
		Threshold{Min: 60, Label: "At risk", ColorToken: "amber"},
		Threshold{Min: 0, Label: "Blocked", ColorToken: "red"},
	)

	// Readiness is the good/fair/poor table used on project cards.
	Readiness = MustThresholds(
		Threshold{Min: 80, Label: "Good", ColorToken: "green"},
		Threshold{Min: 50, Label: "Fair", ColorToken: "yellow"},
		Threshold{Min: 0, Label: "Poor", ColorToken: "red"},
	)

	// Completeness is the four-tier table used for baseline completeness.
	Completeness = MustThresholds(
		Threshold{Min: 80, Label: "Excellent", ColorToken: "green"},
		Threshold{Min: 50, Label: "Good", ColorToken: "blue"},
		Threshold{Min: 20, Label: "Fair", ColorToken: "amber"},
		Threshold{Min: 0, Label: "Poor", ColorToken: "red"},
	)
)

// Presets returns the built-in tables keyed by context name.
func Presets() map[string]Thresholds {
	return map[string]Thresholds{
		"gate":         Gate,
		"readiness":    Readiness,
		"completeness": Completeness,
	}
}
