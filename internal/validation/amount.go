// Package validation holds the number handling, report building and tax policy
// shared by the invoice and payslip validators and the offline analysis.
package validation

import (
	"math"
	"strconv"
	"strings"
)

// Round2 rounds half away from zero to two decimals
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ApproxEqual reports whether a and b differ by at most tol
func ApproxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// Float returns a pointer to v, for optional totals
func Float(v float64) *float64 {
	return &v
}

// ParseAmount parses a monetary amount as printed on Italian documents.
// Everything except digits and separators is dropped, signs included, so the result
// is never negative. When both separators are present the last one is the decimal
// mark ("1.234,56" and "1,234.56" both give 1234.56);
// a lone comma is a decimal mark; repeated identical separators are thousands marks.
// Empty or unparsable input yields 0.
func ParseAmount(s string) float64 {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(cleaned, ".") > 1 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}
