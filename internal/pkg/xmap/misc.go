package xmap

import (
	"encoding/json"
	"math"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// GetString extracts a string value from a map[string]any.
// The second return value reports whether the key holds a string.
func GetString(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}

	switch v := m[key].(type) {
	case string:
		return v, true
	case *string:
		if v == nil {
			return "", false
		}

		return *v, true
	default:
		return "", false
	}
}

// GetInt64Ptr extracts a non-negative whole number from a map[string]any.
// Numeric strings, fractions and negative values are rejected.
func GetInt64Ptr(m map[string]any, key string) *int64 {
	if m == nil {
		return nil
	}

	v, ok := m[key]
	if !ok || !IsNumber(v) {
		return nil
	}

	n, ok := toInt64(v)
	if !ok || n < 0 {
		return nil
	}

	return lo.ToPtr(n)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}

		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return wholeFloat(f)
	case float32:
		return wholeFloat(float64(n))
	case float64:
		return wholeFloat(n)
	default:
		i, err := cast.ToInt64E(v)
		return i, err == nil
	}
}

func wholeFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}

	return int64(f), true
}

// GetBoolPtr extracts a *bool value from a map[string]any.
func GetBoolPtr(m map[string]any, key string) *bool {
	if m == nil {
		return nil
	}

	switch v := m[key].(type) {
	case bool:
		return lo.ToPtr(v)
	case *bool:
		return v
	default:
		return nil
	}
}

// GetMap extracts a nested mapping from a map[string]any.
func GetMap(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}

	v, ok := m[key].(map[string]any)

	return v, ok
}

// GetSlice extracts a []any value from a map[string]any.
// Typed slices are converted element by element.
func GetSlice(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}

	switch v := m[key].(type) {
	case []any:
		return v, true
	case []map[string]any:
		return lo.Map(v, func(item map[string]any, _ int) any { return item }), true
	default:
		return nil, false
	}
}

// IsNumber reports whether v holds a numeric value, json.Number included.
func IsNumber(v any) bool {
	switch n := v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	case json.Number:
		_, err := n.Float64()
		return err == nil
	default:
		return false
	}
}
