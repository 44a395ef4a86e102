// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package effect

import (
	"strconv"
	"time"
)

// Annotations are the metadata attached to effect
// declarations. Values are bool, integer, floating-point
// or string scalars, or lists of them.
type Annotations map[string]any

// Has reports whether the named annotation exists.
func (a Annotations) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// Float returns the named annotation as a float64.
// Missing or non-numeric annotations yield 0.
func (a Annotations) Float(name string) float64 {
	f, _ := toFloat(a[name])
	return f
}

// Int returns the named annotation as an int.
func (a Annotations) Int(name string) int { return int(a.Float(name)) }

// Bool returns the named annotation as a bool.
// Numbers are true if non-zero.
func (a Annotations) Bool(name string) bool {
	switch v := a[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return a.Float(name) != 0
}

// String returns the named annotation as a string.
func (a Annotations) String(name string) string {
	switch v := a[name].(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	}
	f, _ := toFloat(a[name])
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Floats returns the named annotation as a list of
// float64. A scalar yields a list of one element.
func (a Annotations) Floats(name string) []float64 {
	switch v := a[name].(type) {
	case nil:
		return nil
	case []any:
		s := make([]float64, len(v))
		for i := range v {
			s[i], _ = toFloat(v[i])
		}
		return s
	case []float64:
		return v
	case []float32:
		s := make([]float64, len(v))
		for i := range v {
			s[i] = float64(v[i])
		}
		return s
	case []int:
		s := make([]float64, len(v))
		for i := range v {
			s[i] = float64(v[i])
		}
		return s
	}
	f, ok := toFloat(a[name])
	if !ok {
		return nil
	}
	return []float64{f}
}

func toFloat(v any) (float64, bool) {
	switch v := v.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			if i, err := strconv.ParseInt(v, 0, 64); err == nil {
				return float64(i), true
			}
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// MovingAverage averages the last 60 samples of a
// duration.
type MovingAverage struct {
	s   [60]time.Duration
	n   int
	i   int
	sum time.Duration
}

// Append adds a sample.
func (m *MovingAverage) Append(d time.Duration) {
	if m.n == len(m.s) {
		m.sum -= m.s[m.i]
	} else {
		m.n++
	}
	m.s[m.i] = d
	m.sum += d
	m.i = (m.i + 1) % len(m.s)
}

// Get returns the average, or 0 without samples.
func (m *MovingAverage) Get() time.Duration {
	if m.n == 0 {
		return 0
	}
	return m.sum / time.Duration(m.n)
}

// Clear discards every sample.
func (m *MovingAverage) Clear() { *m = MovingAverage{} }
