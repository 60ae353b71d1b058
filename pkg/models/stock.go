// Package models defines the core data structures shared across fundash.
package models

// Stock is a row from the master list: a ticker plus its display name.
type Stock struct {
	Ticker string `json:"ticker"` // e.g., "TCS.NS", "500325.BO"
	Name   string `json:"name"`   // e.g., "Tata Consultancy Services Ltd"
}

// Label returns the dropdown label used by the dashboard selector.
func (s Stock) Label() string {
	if s.Name == "" {
		return s.Ticker
	}
	return s.Name + " (" + s.Ticker + ")"
}

// Page variants served by the primary site.
const (
	VariantConsolidated = "consolidated"
	VariantStandalone   = "standalone"
)

// Page is a successfully fetched company page, tagged with the identifier
// and URL variant that produced it.
type Page struct {
	Ticker     string `json:"ticker"`
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
	Variant    string `json:"variant"`
	HTML       string `json:"-"`
}
