// Package domain defines the core interfaces and types for Cardea.
package domain

// Context is the flat mapping of named scalar values a condition is
// evaluated against. Values are numbers, booleans, or strings.
type Context map[string]any

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Float reads a field as float64, coercing ints and bools the way rule
// authors expect (true == 1). Missing or non-numeric fields read as 0.
func (c Context) Float(name string) float64 {
	v, ok := c[name]
	if !ok {
		return 0
	}
	f, ok := AsFloat(v)
	if !ok {
		return 0
	}
	return f
}

// AsFloat coerces a scalar context value to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// ComputeBMI derives body mass index from height and weight.
// Returns 0 when height is not positive.
func ComputeBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 {
		return 0
	}
	m := heightCm / 100.0
	return weightKg / (m * m)
}

// WithBMI returns a copy of the context augmented with the derived "bmi"
// field. The original context is never mutated.
func (c Context) WithBMI() Context {
	out := c.Clone()
	out["bmi"] = ComputeBMI(c.Float("height_cm"), c.Float("weight_kg"))
	return out
}
