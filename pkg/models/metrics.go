package models

// NotAvailable is the display sentinel for a metric that could not be
// scraped, derived, or backfilled.
const NotAvailable = "N/A"

// MetricName identifies one field of a MetricsRecord.
type MetricName string

const (
	MetricMarketCap     MetricName = "Market Cap"
	MetricCurrentPrice  MetricName = "Current Price"
	MetricPE            MetricName = "P/E Ratio"
	MetricBookValue     MetricName = "Book Value"
	MetricPriceToBook   MetricName = "Price / Book"
	MetricDividendYield MetricName = "Dividend Yield"
	MetricROCE          MetricName = "ROCE"
	MetricROE           MetricName = "ROE"
	MetricFaceValue     MetricName = "Face Value"
	MetricHigh52        MetricName = "52-Week High"
	MetricLow52         MetricName = "52-Week Low"
	MetricSalesYoY      MetricName = "Sales YoY %"
	MetricProfitYoY     MetricName = "Net Profit YoY %"
)

// MetricOrder is the display order of the comparison table.
var MetricOrder = []MetricName{
	MetricMarketCap,
	MetricCurrentPrice,
	MetricPE,
	MetricBookValue,
	MetricPriceToBook,
	MetricDividendYield,
	MetricROCE,
	MetricROE,
	MetricFaceValue,
	MetricHigh52,
	MetricLow52,
	MetricSalesYoY,
	MetricProfitYoY,
}

// MetricsRecord holds the display-formatted fundamentals of one ticker.
type MetricsRecord struct {
	Values           map[MetricName]string `json:"values"`
	CompanyPage      string                `json:"company_page,omitempty"`
	BalanceSheetPage string                `json:"balance_sheet_page,omitempty"`
	Sources          []string              `json:"sources,omitempty"`
}

// NewMetricsRecord returns a record with every metric set to NotAvailable.
func NewMetricsRecord() MetricsRecord {
	r := MetricsRecord{Values: make(map[MetricName]string, len(MetricOrder))}
	for _, m := range MetricOrder {
		r.Values[m] = NotAvailable
	}
	return r
}

// Get returns the value for m, or NotAvailable.
func (r MetricsRecord) Get(m MetricName) string {
	if v, ok := r.Values[m]; ok && v != "" {
		return v
	}
	return NotAvailable
}

// Has reports whether m holds a real value.
func (r MetricsRecord) Has(m MetricName) bool {
	return r.Get(m) != NotAvailable
}

// Set stores v for m; an empty v stores NotAvailable.
func (r MetricsRecord) Set(m MetricName, v string) {
	if v == "" {
		v = NotAvailable
	}
	r.Values[m] = v
}

// Missing returns the metrics among ms that are not available.
func (r MetricsRecord) Missing(ms ...MetricName) []MetricName {
	var out []MetricName
	for _, m := range ms {
		if !r.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// Clone returns a deep copy of r.
func (r MetricsRecord) Clone() MetricsRecord {
	out := r
	out.Values = make(map[MetricName]string, len(r.Values))
	for k, v := range r.Values {
		out.Values[k] = v
	}
	out.Sources = append([]string(nil), r.Sources...)
	return out
}

// AddSource records that src contributed at least one field.
func (r *MetricsRecord) AddSource(src string) {
	for _, s := range r.Sources {
		if s == src {
			return
		}
	}
	r.Sources = append(r.Sources, src)
}

// QuoteSnapshot is a partial set of metrics from a secondary quote source.
type QuoteSnapshot map[MetricName]string

// Merge copies entries of other that are missing from q. Existing entries
// are never overwritten.
func (q QuoteSnapshot) Merge(other QuoteSnapshot) {
	for k, v := range other {
		if v == "" {
			continue
		}
		if _, ok := q[k]; !ok {
			q[k] = v
		}
	}
}

// Has reports whether q carries every one of ms.
func (q QuoteSnapshot) Has(ms ...MetricName) bool {
	for _, m := range ms {
		if q[m] == "" {
			return false
		}
	}
	return true
}
