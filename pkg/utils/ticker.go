// Package utils provides common helpers for tickers, numbers and time.
package utils

import (
	"strings"
)

// Yahoo-style exchange suffixes carried by master-list tickers.
const (
	SuffixNSE = ".NS" // primary exchange
	SuffixBSE = ".BO" // secondary exchange
)

// NormalizeTicker trims whitespace and a leading "$" (common in chat) and
// uppercases the ticker.
func NormalizeTicker(ticker string) string {
	ticker = strings.TrimSpace(strings.ToUpper(ticker))
	return strings.TrimPrefix(ticker, "$")
}

// SplitSuffix splits a ticker into its base and a known exchange suffix.
// Unknown or missing suffixes return the ticker unchanged and "".
func SplitSuffix(ticker string) (base, suffix string) {
	switch {
	case strings.HasSuffix(ticker, SuffixNSE):
		return strings.TrimSuffix(ticker, SuffixNSE), SuffixNSE
	case strings.HasSuffix(ticker, SuffixBSE):
		return strings.TrimSuffix(ticker, SuffixBSE), SuffixBSE
	}
	return ticker, ""
}

// IsDigits reports whether s is non-empty and made only of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsBSECode reports whether id looks like a BSE numeric scrip code.
func IsBSECode(id string) bool {
	return IsDigits(id)
}
