// Package masterlist loads the ticker/company-name CSV that feeds the stock
// selector and the CSV-derived identifier map.
package masterlist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/seenimoa/fundash/internal/logging"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// identifierColumns are the optional per-exchange columns, in preference order.
var identifierColumns = []string{"nse_symbol", "bse_code", "bse_symbol"}

// List is an immutable, ordered master list.
type List struct {
	stocks      []models.Stock
	names       map[string]string
	identifiers map[string][]string
}

// Load reads a master list from a CSV file.
func Load(path string, logger arbor.ILogger) (*List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open master list %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f, logger)
}

// Parse reads a master list from CSV. A file without recognisable ticker and
// name columns yields an empty list rather than an error.
func Parse(r io.Reader, logger arbor.ILogger) (*List, error) {
	logger = logging.OrDefault(logger)

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return New(nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	tickerCol, nameCol := detectColumns(header)
	if tickerCol < 0 || nameCol < 0 {
		logger.Warn().Strs("columns", header).Msg("master list: could not find ticker and company name columns")
		return New(nil, nil), nil
	}
	logger.Debug().Str("ticker_col", header[tickerCol]).Str("name_col", header[nameCol]).Msg("master list columns detected")

	idCols := make([]int, 0, len(identifierColumns))
	for _, want := range identifierColumns {
		for i, col := range header {
			if strings.EqualFold(col, want) {
				idCols = append(idCols, i)
				break
			}
		}
	}

	var stocks []models.Stock
	ids := make(map[string][]string)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			logger.Warn().Err(err).Msg("master list: skipping malformed record")
			continue
		}

		ticker := cell(record, tickerCol)
		name := cell(record, nameCol)
		if ticker == "" || name == "" {
			continue
		}
		stocks = append(stocks, models.Stock{Ticker: ticker, Name: name})

		var cand []string
		for _, c := range idCols {
			if v := normalizeIdentifier(cell(record, c)); v != "" && !contains(cand, v) {
				cand = append(cand, v)
			}
		}
		if len(cand) > 0 {
			ids[ticker] = cand
		}
	}

	logger.Info().Int("stocks", len(stocks)).Int("mapped", len(ids)).Msg("master list loaded")
	return New(stocks, ids), nil
}

// New builds a List from already-parsed rows.
func New(stocks []models.Stock, identifiers map[string][]string) *List {
	l := &List{
		stocks:      append([]models.Stock(nil), stocks...),
		names:       make(map[string]string, len(stocks)),
		identifiers: make(map[string][]string, len(identifiers)),
	}
	for _, s := range l.stocks {
		if _, ok := l.names[s.Ticker]; !ok {
			l.names[s.Ticker] = s.Name
		}
	}
	for k, v := range identifiers {
		l.identifiers[k] = append([]string(nil), v...)
	}
	return l
}

// Len returns the number of rows.
func (l *List) Len() int { return len(l.stocks) }

// Stocks returns a copy of all rows in file order.
func (l *List) Stocks() []models.Stock {
	return append([]models.Stock(nil), l.stocks...)
}

// Name returns the company name for ticker, or the ticker itself when unknown.
func (l *List) Name(ticker string) string {
	if n, ok := l.names[ticker]; ok {
		return n
	}
	return ticker
}

// Has reports whether ticker is in the list.
func (l *List) Has(ticker string) bool {
	_, ok := l.names[ticker]
	return ok
}

// Identifiers returns a copy of the CSV-derived identifier map.
func (l *List) Identifiers() map[string][]string {
	out := make(map[string][]string, len(l.identifiers))
	for k, v := range l.identifiers {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Search returns up to limit rows whose ticker or name contains q
// (case-insensitive). Ticker prefix matches sort first. limit <= 0 means no limit.
func (l *List) Search(q string, limit int) []models.Stock {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []models.Stock
	for _, s := range l.stocks {
		if q == "" || strings.Contains(strings.ToLower(s.Ticker), q) || strings.Contains(strings.ToLower(s.Name), q) {
			out = append(out, s)
		}
	}
	if q != "" {
		sort.SliceStable(out, func(i, j int) bool {
			pi := strings.HasPrefix(strings.ToLower(out[i].Ticker), q)
			pj := strings.HasPrefix(strings.ToLower(out[j].Ticker), q)
			return pi && !pj
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Defaults returns the first n tickers, used as the initial selection.
func (l *List) Defaults(n int) []string {
	var out []string
	for _, s := range l.stocks {
		if len(out) == n {
			break
		}
		out = append(out, s.Ticker)
	}
	return out
}

// detectColumns resolves the ticker and name columns: exact name, then
// case-insensitive exact, then a substring heuristic that skips the
// per-exchange NSE/BSE columns.
func detectColumns(header []string) (tickerCol, nameCol int) {
	tickerCol, nameCol = -1, -1

	for i, col := range header {
		if col == "Ticker" && tickerCol < 0 {
			tickerCol = i
		}
		if col == "CompanyName" && nameCol < 0 {
			nameCol = i
		}
	}

	if tickerCol < 0 {
		tickerCol = indexWhere(header, func(lc, _ string) bool { return lc == "ticker" })
	}
	if nameCol < 0 {
		nameCol = indexWhere(header, func(lc, _ string) bool { return lc == "companyname" })
	}

	if tickerCol < 0 {
		tickerCol = indexWhere(header, func(lc, raw string) bool {
			if lc == "ticker" || (strings.HasPrefix(lc, "ticker") && !strings.Contains(raw, "_")) {
				return true
			}
			return strings.Contains(lc, "symbol") && !mentionsExchange(lc)
		})
	}
	if nameCol < 0 {
		nameCol = indexWhere(header, func(lc, _ string) bool {
			if lc == "companyname" || (strings.HasPrefix(lc, "company") && !mentionsExchange(lc)) {
				return true
			}
			return strings.Contains(lc, "name") && !mentionsExchange(lc) && lc != "name"
		})
	}
	return tickerCol, nameCol
}

func indexWhere(header []string, pred func(lower, raw string) bool) int {
	for i, col := range header {
		if pred(strings.ToLower(strings.TrimSpace(col)), col) {
			return i
		}
	}
	return -1
}

func mentionsExchange(lc string) bool {
	return strings.Contains(lc, "nse") || strings.Contains(lc, "bse")
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// normalizeIdentifier drops spreadsheet null markers and the ".0" suffix
// numeric codes pick up when a sheet stores them as floats.
func normalizeIdentifier(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "", "nan", "none", "null", "-":
		return ""
	}
	if whole, frac, ok := strings.Cut(v, "."); ok && utils.IsDigits(whole) && strings.Trim(frac, "0") == "" {
		return whole
	}
	return v
}

func contains(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
