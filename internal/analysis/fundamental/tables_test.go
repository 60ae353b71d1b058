package fundamental

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seenimoa/fundash/pkg/models"
)

func TestParseTables_CompanyPage(t *testing.T) {
	tables, err := ParseTables(companyPage)
	require.NoError(t, err)
	require.Len(t, tables, 4)

	pl := tables[0]
	assert.Equal(t, []string{"", "Mar 2022", "Mar 2023", "Mar 2024", "TTM"}, pl.Header)
	assert.Equal(t, "Sales +", pl.Rows[0][0], "non-breaking space collapsed")
	assert.Equal(t, 5, pl.Width())
}

func TestParseTables_SkipsNestedRows(t *testing.T) {
	html := `<table>
  <tr><th>Item</th><th>FY24</th></tr>
  <tr><td>Outer<table><tr><td>Inner</td><td>1</td></tr></table></td><td>2</td></tr>
</table>`
	tables, err := ParseTables(html)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	assert.Equal(t, []string{"Item", "FY24"}, tables[0].Header)
	require.Len(t, tables[0].Rows, 1)
	assert.Equal(t, "2", tables[0].Rows[0][1])
	assert.Equal(t, [][]string{{"Inner", "1"}}, tables[1].Rows)
}

func TestParseTables_ExpandsColspan(t *testing.T) {
	html := `<table>
  <thead><tr><th></th><th colspan="2">FY</th><th>TTM</th></tr></thead>
  <tr><td>Sales</td><td>100</td><td colspan="2">120</td></tr>
  <tr><td>Net Profit</td><td colspan="x">10</td><td>12</td><td>13</td></tr>
</table>`
	tables, err := ParseTables(html)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	tbl := tables[0]
	assert.Equal(t, []string{"", "FY", "FY", "TTM"}, tbl.Header)
	assert.Equal(t, []string{"Sales", "100", "120", "120"}, tbl.Rows[0])
	assert.Equal(t, []string{"Net Profit", "10", "12", "13"}, tbl.Rows[1])
	assert.Equal(t, "20.0 %", RowYoY(&tbl, "Sales"))
}

func TestLocate(t *testing.T) {
	tables := []Table{
		{Rows: [][]string{{"Revenue"}, {"Expenses"}}},
		{Rows: [][]string{{"Total Sales"}, {"Net Profit After Tax"}}},
		{Rows: [][]string{{"Sales"}, {"Net Profit"}}},
	}

	got := Locate(tables, "Sales", "Net Profit")
	require.NotNil(t, got)
	assert.Equal(t, "Total Sales", got.Rows[0][0], "first match in document order")

	assert.Nil(t, Locate(tables, "Equity Capital"))
	assert.Nil(t, Locate(tables))
	assert.Nil(t, Locate(nil, "Sales"))
}

func TestLocate_CaseInsensitive(t *testing.T) {
	tables := []Table{{Rows: [][]string{{"NET CASH FLOW"}, {"cash from operating activity +"}}}}
	assert.NotNil(t, Locate(tables, "Cash from Operating Activity", "Net Cash Flow"))
}

func TestLocateAny(t *testing.T) {
	tables := []Table{
		{Rows: [][]string{{"Sales"}}},
		{Rows: [][]string{{"Promoter group"}, {"Public"}}},
	}
	got := LocateAny(tables, "Promoters", "Promoter")
	require.NotNil(t, got)
	assert.Equal(t, "Promoter group", got.Rows[0][0])
	assert.Nil(t, LocateAny(tables, "FIIs"))
}

func TestLocateInHTML(t *testing.T) {
	got := LocateInHTML(companyPage, "Equity Capital", "Total Assets")
	require.NotNil(t, got)
	assert.Equal(t, "Equity Capital", got.Rows[0][0])

	assert.Nil(t, LocateInHTML("<p>no tables</p>", "Sales"))
}

func TestTableRow(t *testing.T) {
	tbl := Table{Rows: [][]string{
		{"Sales +", "100", "120"},
		{"Net Profit", "10", "12"},
		{"Net Profit Margin", "10%", "10%"},
	}}

	assert.Equal(t, []string{"Sales +", "100", "120"}, tbl.Row("sales"))
	assert.Equal(t, "Net Profit", tbl.Row("Net Profit")[0], "exact label beats prefix")
	assert.Nil(t, tbl.Row("Expenses"))
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "Sales", NormalizeLabel("  Sales + "))
	assert.Equal(t, "Other Income", NormalizeLabel("Other   Income +"))
	assert.Equal(t, "Tax %", NormalizeLabel("Tax %"))
}

func TestTruncate_KeepsLeadingColumns(t *testing.T) {
	header := []string{""}
	row := []string{"Sales"}
	for i := 1; i <= 12; i++ {
		header = append(header, "Y"+string(rune('A'+i-1)))
		row = append(row, "1")
	}
	tbl := Table{Header: header, Rows: [][]string{row, {"Short", "1"}}}

	got := tbl.Truncate(10)
	assert.Len(t, got.Header, 10)
	assert.Equal(t, "", got.Header[0])
	assert.Equal(t, "YI", got.Header[9])
	assert.Len(t, got.Rows[0], 10)
	assert.Equal(t, []string{"Short", "1"}, got.Rows[1])

	// source untouched
	assert.Len(t, tbl.Header, 13)

	assert.Len(t, tbl.Truncate(0).Header, 13)
}

func TestStatements(t *testing.T) {
	tables, err := ParseTables(companyPage)
	require.NoError(t, err)

	st := Statements(tables)
	require.Len(t, st, 4)
	for _, kind := range models.StatementKinds {
		require.NotNil(t, st[kind], kind)
		assert.Equal(t, kind, st[kind].Kind)
	}
	assert.Equal(t, "Sales", st[models.StatementProfitLoss].Rows[0][0])
	assert.Equal(t, "Cash from Operating Activity", st[models.StatementCashFlow].Rows[0][0])
	assert.Equal(t, "Promoters", st[models.StatementShareholding].Rows[0][0])
}

func TestStatements_Missing(t *testing.T) {
	st := Statements([]Table{{Rows: [][]string{{"Sales"}, {"Net Profit"}}}})
	assert.NotNil(t, st[models.StatementProfitLoss])
	assert.Nil(t, st[models.StatementBalanceSheet])
	assert.Nil(t, st[models.StatementCashFlow])
	assert.Nil(t, st[models.StatementShareholding])
}

func TestTruncateStatement(t *testing.T) {
	assert.Nil(t, TruncateStatement(nil, 10))

	st := &models.StatementTable{
		Kind:   models.StatementBalanceSheet,
		Header: []string{"", "A", "B", "C"},
		Rows:   [][]string{{"Equity Capital", "1", "2", "3"}},
	}
	got := TruncateStatement(st, 2)
	assert.Equal(t, models.StatementBalanceSheet, got.Kind)
	assert.Equal(t, []string{"", "A"}, got.Header)
	assert.Equal(t, [][]string{{"Equity Capital", "1"}}, got.Rows)
}
