package upstream

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a nullable JSON number. It also accepts numeric strings. Any
// other value (null, bool, object, garbage) decodes as absent instead of
// failing the surrounding payload.
type Number struct {
	value float64
	valid bool
}

// NumberOf returns a present Number.
func NumberOf(v float64) Number {
	return Number{value: v, valid: true}
}

// Valid reports whether a finite value was decoded.
func (n Number) Valid() bool {
	return n.valid
}

// Value returns the decoded value and whether it was present.
func (n Number) Value() (float64, bool) {
	return n.value, n.valid
}

// Ptr returns nil when absent.
func (n Number) Ptr() *float64 {
	if !n.valid {
		return nil
	}
	v := n.value
	return &v
}

// UnmarshalJSON never returns an error.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		text = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	*n = Number{value: v, valid: true}
	return nil
}

// MarshalJSON writes null for an absent value.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// firstValid returns the first present number.
func firstValid(values ...Number) Number {
	for _, v := range values {
		if v.valid {
			return v
		}
	}
	return Number{}
}
