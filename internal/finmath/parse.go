package finmath

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// numberPattern is the accepted grammar:
//
//	number  = [sign] ["$"] digits [fraction] [suffix]
//	sign    = "+" | "-"
//	digits  = 1*3DIGIT *("," 3DIGIT) | 1*DIGIT
//	fraction= "." 1*DIGIT
//	suffix  = "%" | "K" | "M" | "B" | "T"   (case-insensitive)
//
// The whole number may also be wrapped in parentheses, accounting style,
// which negates it. Whitespace around the number and before the suffix is
// ignored.
var numberPattern = regexp.MustCompile(`^([+-])?\$?(\d{1,3}(?:,\d{3})+|\d+)?(\.\d+)?\s*([KkMmBbTt%])?$`)

var suffixExponent = map[string]int32{
	"K": 3,
	"M": 6,
	"B": 9,
	"T": 12,
}

// ParseNumber parses a display-formatted number such as "$1,234.5",
// "12.5%", "-3.2B" or "(450)". A "%" suffix is stripped and the number is
// returned as-is (12.5% -> 12.5). Anything outside the grammar returns nil.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	negate := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negate = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return nil
	}

	m := numberPattern.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	sign, whole, frac, suffix := m[1], m[2], m[3], strings.ToUpper(m[4])
	if whole == "" && frac == "" {
		return nil
	}
	if whole == "" {
		whole = "0"
	}
	if negate && sign != "" {
		return nil
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(whole, ",", "") + frac)
	if err != nil {
		return nil
	}
	if exp, ok := suffixExponent[suffix]; ok {
		d = d.Shift(exp)
	}
	if sign == "-" || negate {
		d = d.Neg()
	}
	return Ptr(d.InexactFloat64())
}
