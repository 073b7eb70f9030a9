package types

import (
	"encoding/json"
	"maps"
)

// Inputs is the loosely typed input bag of an instance. Values are a number,
// a list of numbers, or a string, as decoded from JSON.
type Inputs map[string]any

// Number returns the named value as a float64. ok is false when the value is
// absent or not a single number.
func (in Inputs) Number(name string) (float64, bool) {
	v, present := in[name]
	if !present {
		return 0, false
	}
	return toFloat(v)
}

// Numbers returns the named value as a list of float64. ok is false when the
// value is absent, not a list, or contains a non-number.
func (in Inputs) Numbers(name string) ([]float64, bool) {
	switch v := in[name].(type) {
	case []float64:
		return append([]float64(nil), v...), true
	case []any:
		out := make([]float64, 0, len(v))
		for _, elem := range v {
			f, ok := toFloat(elem)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	case []int:
		out := make([]float64, len(v))
		for i, n := range v {
			out[i] = float64(n)
		}
		return out, true
	default:
		return nil, false
	}
}

// Text returns the named value as a string.
func (in Inputs) Text(name string) (string, bool) {
	s, ok := in[name].(string)
	return s, ok
}

// Clone returns a shallow copy safe to mutate at the top level.
func (in Inputs) Clone() Inputs {
	if in == nil {
		return Inputs{}
	}
	return maps.Clone(in)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
