// Package fundamental extracts fundamentals from a Screener company page:
// the key-metrics list, year-over-year growth, the four statement tables
// and the announcements feed. Everything here is a pure function of the
// page HTML apart from the optional quote fallback used by Extractor.
package fundamental
