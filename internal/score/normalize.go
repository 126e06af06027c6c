package score

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// MinMatch and MaxMatch bound every normalized match value
	MinMatch = 0.0
	MaxMatch = 100.0
)

// Normalize coerces whatever the model put in the match field into [0, 100].
//
// Numbers are clamped as-is. Strings keep only digits and '.', so "87%"
// becomes 87 and "-5" becomes 5. Missing values, other types and anything
// that fails to parse yield 0. Normalize(Normalize(x)) == Normalize(x).
func Normalize(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return clamp(t)
	case float32:
		return clamp(float64(t))
	case int:
		return clamp(float64(t))
	case int8:
		return clamp(float64(t))
	case int16:
		return clamp(float64(t))
	case int32:
		return clamp(float64(t))
	case int64:
		return clamp(float64(t))
	case uint:
		return clamp(float64(t))
	case uint8:
		return clamp(float64(t))
	case uint16:
		return clamp(float64(t))
	case uint32:
		return clamp(float64(t))
	case uint64:
		return clamp(float64(t))
	case json.Number:
		return parseText(t.String())
	case string:
		return parseText(t)
	default:
		return 0
	}
}

func parseText(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return clamp(f)
}

func clamp(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(MinMatch, math.Min(MaxMatch, f))
}
