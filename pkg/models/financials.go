package models

// StatementKind names one of the four statement tables.
type StatementKind string

const (
	StatementProfitLoss   StatementKind = "profit-loss"
	StatementBalanceSheet StatementKind = "balance-sheet"
	StatementCashFlow     StatementKind = "cash-flow"
	StatementShareholding StatementKind = "shareholding"
)

// StatementKinds lists the statement tables in dashboard order.
var StatementKinds = []StatementKind{
	StatementProfitLoss,
	StatementBalanceSheet,
	StatementCashFlow,
	StatementShareholding,
}

// Title returns the section heading for k.
func (k StatementKind) Title() string {
	switch k {
	case StatementProfitLoss:
		return "Profit & Loss"
	case StatementBalanceSheet:
		return "Balance Sheet"
	case StatementCashFlow:
		return "Cash Flows"
	case StatementShareholding:
		return "Shareholding Pattern"
	}
	return string(k)
}

// StatementTable is a located statement table. The first column carries
// line-item labels; remaining columns are period values.
type StatementTable struct {
	Kind   StatementKind `json:"kind"`
	Header []string      `json:"header"`
	Rows   [][]string    `json:"rows"`
}
