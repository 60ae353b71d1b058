// Package resolver maps a ticker symbol to the ordered list of identifiers
// to try against the fundamentals site.
package resolver

import (
	"strings"

	"github.com/seenimoa/fundash/pkg/utils"
)

// Source names where a resolution came from.
type Source string

const (
	SourceOverride  Source = "override"
	SourceCSV       Source = "csv"
	SourceHeuristic Source = "heuristic"
	SourceNone      Source = "none"
)

// Registry holds the lookup tables consulted before the heuristic.
// It is built once at startup and never mutated afterwards.
type Registry struct {
	overrides map[string][]string
	csv       map[string][]string
}

// NewRegistry copies the override and CSV-derived tables. Entries with no
// non-empty identifiers are ignored.
func NewRegistry(overrides, csvIdentifiers map[string][]string) *Registry {
	return &Registry{
		overrides: cleanTable(overrides),
		csv:       cleanTable(csvIdentifiers),
	}
}

// Resolver turns tickers into identifier candidates.
type Resolver struct {
	reg *Registry
}

// New returns a Resolver over reg. A nil registry means heuristic only.
func New(reg *Registry) *Resolver {
	if reg == nil {
		reg = NewRegistry(nil, nil)
	}
	return &Resolver{reg: reg}
}

// Resolve returns the identifiers for ticker in preference order.
// It returns nil only for an empty ticker.
func (r *Resolver) Resolve(ticker string) []string {
	ids, _ := r.Explain(ticker)
	return ids
}

// Explain is Resolve plus the table that produced the answer.
func (r *Resolver) Explain(ticker string) ([]string, Source) {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil, SourceNone
	}
	if ids, ok := r.reg.overrides[ticker]; ok {
		return append([]string(nil), ids...), SourceOverride
	}
	if ids, ok := r.reg.csv[ticker]; ok {
		return append([]string(nil), ids...), SourceCSV
	}
	return []string{Heuristic(ticker)}, SourceHeuristic
}

// Heuristic derives a single identifier from the ticker text:
// "TCS.NS" → "TCS", "500325.BO" → "500325", "RPOWER.BO" → "RPOWER",
// "M.X" → "M", anything else unchanged.
func Heuristic(ticker string) string {
	base, suffix := utils.SplitSuffix(ticker)
	switch suffix {
	case utils.SuffixNSE, utils.SuffixBSE:
		if base != "" {
			return base
		}
	}
	if i := strings.Index(ticker, "."); i > 0 {
		return ticker[:i]
	}
	return ticker
}

func cleanTable(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		k = strings.TrimSpace(k)
		var ids []string
		for _, id := range v {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		if k != "" && len(ids) > 0 {
			out[k] = ids
		}
	}
	return out
}
