// Package finmath holds the small numeric helpers used to derive financial
// ratios. Every helper takes and returns optional values: a result that
// would be NaN, infinite or a division by zero is nil instead.
package finmath

import "math"

// Ptr returns a pointer to v, or nil if v is not a finite number.
func Ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Or returns *p, or def when p is nil.
func Or(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// First returns the first non-nil value.
func First(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// SafeDiv divides num by den, nil when either is missing or den is zero.
func SafeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	return Ptr(*num / *den)
}

// DivPositive divides num by den only when den is strictly positive.
func DivPositive(num, den *float64) *float64 {
	if den == nil || *den <= 0 {
		return nil
	}
	return SafeDiv(num, den)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Abs returns |*p|.
func Abs(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Ptr(math.Abs(*p))
}

// Sub returns a - b.
func Sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return Ptr(*a - *b)
}

// Sum adds all values; nil if any value is missing.
func Sum(values ...*float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var total float64
	for _, v := range values {
		if v == nil {
			return nil
		}
		total += *v
	}
	return Ptr(total)
}

// Scale multiplies by a constant.
func Scale(p *float64, k float64) *float64 {
	if p == nil {
		return nil
	}
	return Ptr(*p * k)
}

// PctChange is the percentage change from prev to cur, measured against
// |prev| so a move from a negative base keeps its direction.
func PctChange(cur, prev *float64) *float64 {
	if cur == nil || prev == nil || *prev == 0 {
		return nil
	}
	return Ptr((*cur - *prev) / math.Abs(*prev) * 100)
}

// CalcMargin returns numerator as a percentage of revenue. Zero, negative
// or missing revenue yields nil.
func CalcMargin(numerator, revenue *float64) *float64 {
	if numerator == nil || revenue == nil || *revenue <= 0 {
		return nil
	}
	return Ptr(*numerator / *revenue * 100)
}

// CalcCagr is the compound annual growth rate in percent:
// ((end/start)^(1/years) - 1) * 100. A non-positive start or a negative end
// has no real-valued rate and yields nil.
func CalcCagr(end, start *float64, years float64) *float64 {
	if end == nil || start == nil || *start <= 0 || *end < 0 || years <= 0 {
		return nil
	}
	return Ptr((math.Pow(*end / *start, 1/years) - 1) * 100)
}

// Round rounds half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
