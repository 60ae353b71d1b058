package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberRe = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// FirstNumber extracts the first number embedded in s, ignoring currency
// glyphs, units and thousands separators. "₹ 1,234.5 Cr." → 1234.5.
func FirstNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	m := numberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseCell parses a statement-table cell strictly: thousands separators
// and surrounding whitespace are removed, anything else must be a number.
func ParseCell(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatGrowth formats a year-over-year change, e.g. 20 → "20.0 %".
func FormatGrowth(pct float64) string {
	return fmt.Sprintf("%.1f %%", pct)
}

// FormatRatio formats a ratio with two decimals, e.g. 5 → "5.00".
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// CollapseSpace trims s and collapses inner whitespace runs (including
// non-breaking spaces) to single spaces.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
