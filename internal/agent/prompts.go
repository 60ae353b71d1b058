package agent

import (
	"fmt"
	"strings"

	"github.com/seenimoa/fundash/pkg/models"
)

// SystemPrompt configures the assistant as an Indian-market analyst.
const SystemPrompt = `You are an expert Indian stock market analyst and investment advisor.
Your role is to help users understand stocks, compare investments, and make informed decisions.

Key guidelines:
- Focus on Indian stock market (NSE/BSE)
- Use fundamental analysis (P/E, ROE, ROCE, debt, growth rates)
- Explain concepts clearly for retail investors
- For comparisons, consider both long-term (3-5 years) and short-term (6-12 months) perspectives
- Mention risks and limitations
- Use Indian Rupees (₹) for prices
- Reference actual data when available
- Be concise but informative
- Format responses with markdown: use **bold** for emphasis, bullet points for lists, but avoid excessive formatting
- When mentioning stock names, use plain text without bold formatting

When comparing stocks:
- Long-term: Focus on ROE, ROCE, consistent profit growth, low debt, competitive advantages
- Short-term: Focus on P/E ratio, recent momentum, quarterly results, sector trends
`

// NoStocksContext is the context block when nothing is selected.
const NoStocksContext = "No stocks currently selected."

// StockContext is one selected stock as shown to the model.
type StockContext struct {
	Name    string
	Symbol  string
	Metrics models.MetricsRecord
}

// contextFields are the metrics listed per stock, with the label used in
// the prompt. Price-like fields get a rupee prefix when the value has none.
var contextFields = []struct {
	label  string
	metric models.MetricName
	rupee  bool
}{
	{"Market Cap", models.MetricMarketCap, false},
	{"Current Price", models.MetricCurrentPrice, true},
	{"P/E Ratio", models.MetricPE, false},
	{"Book Value", models.MetricBookValue, false},
	{"Price/Book", models.MetricPriceToBook, false},
	{"Dividend Yield", models.MetricDividendYield, false},
	{"ROCE", models.MetricROCE, false},
	{"ROE", models.MetricROE, false},
	{"52-Week High", models.MetricHigh52, true},
	{"52-Week Low", models.MetricLow52, true},
	{"Sales YoY", models.MetricSalesYoY, false},
	{"Net Profit YoY", models.MetricProfitYoY, false},
}

// BuildStockContext renders the selected stocks' metrics as plain text.
func BuildStockContext(stocks []StockContext) string {
	if len(stocks) == 0 {
		return NoStocksContext
	}

	var b strings.Builder
	b.WriteString("Currently selected stocks:\n\n")
	for _, s := range stocks {
		name, symbol := s.Name, s.Symbol
		if name == "" {
			name = "Unknown"
		}
		if symbol == "" {
			symbol = models.NotAvailable
		}
		fmt.Fprintf(&b, "%s (%s)\n", name, symbol)
		for _, f := range contextFields {
			v := s.Metrics.Get(f.metric)
			if f.rupee && v != models.NotAvailable && !strings.HasPrefix(v, "₹") {
				v = "₹" + v
			}
			fmt.Fprintf(&b, "- %s: %s\n", f.label, v)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// systemPromptWith appends the stock context block when stocks are given.
func systemPromptWith(stocks []StockContext) string {
	if len(stocks) == 0 {
		return SystemPrompt
	}
	return SystemPrompt + "\n\nCurrent stock data available:\n" + BuildStockContext(stocks)
}
