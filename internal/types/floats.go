package types

import "math"

// JSON has no encoding for NaN or ±Inf. Driver formulas may produce them
// (a zero divisor is not guarded), so they are written as null and a null
// read back is treated as NaN.

// NullableFloat returns nil for a non-finite value.
func NullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func nullablePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return NullableFloat(*v)
}

// NullableFloats converts a value map for JSON encoding.
func NullableFloats(m map[string]float64) map[string]*float64 {
	out := make(map[string]*float64, len(m))
	for k, v := range m {
		out[k] = NullableFloat(v)
	}
	return out
}

// FromNullableFloats reverses NullableFloats; null entries become NaN.
func FromNullableFloats(m map[string]*float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if v == nil {
			out[k] = math.NaN()
			continue
		}
		out[k] = *v
	}
	return out
}
