package fundamental

import (
	"strings"

	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// YoYGrowth returns (last/previous - 1) * 100. ok is false when previous
// is zero.
func YoYGrowth(previous, last float64) (pct float64, ok bool) {
	if previous == 0 {
		return 0, false
	}
	return (last/previous - 1) * 100, true
}

// RowYoY computes the year-over-year change of a profit-and-loss line item.
// The last column of the table is the trailing-twelve-month figure, so the
// two full years compared are the second- and third-from-last columns.
// Any missing, zero or non-numeric input yields NotAvailable.
func RowYoY(pl *Table, label string) string {
	if pl == nil {
		return models.NotAvailable
	}
	row := pl.Row(label)
	// label column + at least three period columns
	if len(row) < 4 {
		return models.NotAvailable
	}
	prev, ok1 := utils.ParseCell(row[len(row)-3])
	last, ok2 := utils.ParseCell(row[len(row)-2])
	if !ok1 || !ok2 {
		return models.NotAvailable
	}
	pct, ok := YoYGrowth(prev, last)
	if !ok {
		return models.NotAvailable
	}
	return utils.FormatGrowth(pct)
}

// PriceToBook derives price/book from display strings, rounded to two
// decimals. Missing values or a zero book value yield NotAvailable.
func PriceToBook(price, book string) string {
	p, ok := utils.FirstNumber(price)
	if !ok {
		return models.NotAvailable
	}
	b, ok := utils.FirstNumber(book)
	if !ok || b == 0 {
		return models.NotAvailable
	}
	return utils.FormatRatio(p / b)
}

// SplitHighLow splits Screener's "₹ 4,592 / 3,056" into high and low.
// ok is false unless there are exactly two parts.
func SplitHighLow(s string) (high, low string, ok bool) {
	s = strings.ReplaceAll(s, "₹", "")
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	high = strings.TrimSpace(parts[0])
	low = strings.TrimSpace(parts[1])
	return high, low, true
}
