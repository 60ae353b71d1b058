package fundamental

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// Table is a generic table of strings. Rows include the label column.
type Table struct {
	Header []string
	Rows   [][]string
}

// Locator is a content rule that identifies a statement table: every
// Required substring must appear in the first column, or, when Any is
// set, at least one of Any must.
type Locator struct {
	Kind     models.StatementKind
	Required []string
	Any      []string
}

// StatementLocators are the fixed rules for the four statement tables.
var StatementLocators = []Locator{
	{Kind: models.StatementProfitLoss, Required: []string{"Sales", "Net Profit"}},
	{Kind: models.StatementBalanceSheet, Required: []string{"Equity Capital", "Total Assets"}},
	{Kind: models.StatementCashFlow, Required: []string{"Cash from Operating Activity", "Net Cash Flow"}},
	{Kind: models.StatementShareholding, Any: []string{"Promoters", "Promoter"}},
}

// LocatorFor returns the rule for kind.
func LocatorFor(kind models.StatementKind) (Locator, bool) {
	for _, l := range StatementLocators {
		if l.Kind == kind {
			return l, true
		}
	}
	return Locator{}, false
}

// Find applies the rule to tables.
func (l Locator) Find(tables []Table) *Table {
	if len(l.Any) > 0 {
		return LocateAny(tables, l.Any...)
	}
	return Locate(tables, l.Required...)
}

// ParseTables extracts every <table> of an HTML document in document order.
// Cell text is whitespace-collapsed. Tables without rows are skipped.
func ParseTables(html string) ([]Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}
	return tablesFromDoc(doc), nil
}

func tablesFromDoc(doc *goquery.Document) []Table {
	var tables []Table
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		var t Table
		trs := tbl.Find("tr").FilterFunction(func(_ int, tr *goquery.Selection) bool {
			// Skip rows of nested tables.
			return tr.Closest("table").IsSelection(tbl)
		})
		trs.Each(func(i int, tr *goquery.Selection) {
			cells := rowCells(tr)
			if len(cells) == 0 {
				return
			}
			inHead := tr.ParentsFiltered("thead").Length() > 0
			allTH := tr.Children().Filter("td").Length() == 0
			if t.Header == nil && len(t.Rows) == 0 && (inHead || allTH) {
				t.Header = cells
				return
			}
			t.Rows = append(t.Rows, cells)
		})
		if len(t.Rows) > 0 {
			tables = append(tables, t)
		}
	})
	return tables
}

// maxColspan bounds a single cell's expansion.
const maxColspan = 1000

// rowCells returns the row's cell texts. A cell spanning n columns is
// repeated n times so columns stay aligned across rows.
func rowCells(tr *goquery.Selection) []string {
	var cells []string
	tr.Children().Filter("th, td").Each(func(_ int, c *goquery.Selection) {
		text := utils.CollapseSpace(c.Text())
		for i := 0; i < colspan(c); i++ {
			cells = append(cells, text)
		}
	})
	return cells
}

// colspan reads a cell's colspan attribute; missing or invalid values are 1.
func colspan(c *goquery.Selection) int {
	v, ok := c.Attr("colspan")
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return min(n, maxColspan)
}

// FirstColumn returns the label column.
func (t *Table) FirstColumn() []string {
	out := make([]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if len(r) > 0 {
			out = append(out, r[0])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// columnContains reports whether any first-column cell contains sub,
// case-insensitively.
func (t *Table) columnContains(sub string) bool {
	sub = strings.ToLower(sub)
	for _, c := range t.FirstColumn() {
		if strings.Contains(strings.ToLower(c), sub) {
			return true
		}
	}
	return false
}

// Locate returns the first table whose first column contains a cell
// matching every required substring (case-insensitive), or nil.
func Locate(tables []Table, required ...string) *Table {
	if len(required) == 0 {
		return nil
	}
	for i := range tables {
		ok := true
		for _, r := range required {
			if !tables[i].columnContains(r) {
				ok = false
				break
			}
		}
		if ok {
			return &tables[i]
		}
	}
	return nil
}

// LocateAny returns the first table whose first column matches at least
// one of the alternatives, or nil.
func LocateAny(tables []Table, alternatives ...string) *Table {
	for i := range tables {
		for _, a := range alternatives {
			if tables[i].columnContains(a) {
				return &tables[i]
			}
		}
	}
	return nil
}

// LocateInHTML parses html and applies Locate. Parse failures yield nil.
func LocateInHTML(html string, required ...string) *Table {
	tables, err := ParseTables(html)
	if err != nil {
		return nil
	}
	return Locate(tables, required...)
}

// NormalizeLabel cleans a line-item label for lookups: whitespace is
// collapsed and the expand-button "+" Screener appends is dropped.
func NormalizeLabel(label string) string {
	label = utils.CollapseSpace(label)
	label = strings.TrimSpace(strings.TrimSuffix(label, "+"))
	return label
}

// Row returns the first row whose normalized label equals label
// (case-insensitive), or nil.
func (t *Table) Row(label string) []string {
	want := NormalizeLabel(label)
	for _, r := range t.Rows {
		if len(r) > 0 && strings.EqualFold(NormalizeLabel(r[0]), want) {
			return r
		}
	}
	return nil
}

// Width returns the number of columns of the widest row or header.
func (t *Table) Width() int {
	w := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Truncate returns a copy keeping only the first maxCols columns, label
// column included. maxCols <= 0 keeps everything.
func (t *Table) Truncate(maxCols int) Table {
	out := Table{Header: cut(t.Header, maxCols), Rows: make([][]string, len(t.Rows))}
	for i, r := range t.Rows {
		out.Rows[i] = cut(r, maxCols)
	}
	return out
}

func cut(row []string, maxCols int) []string {
	if row == nil {
		return nil
	}
	if maxCols > 0 && len(row) > maxCols {
		row = row[:maxCols]
	}
	return append([]string(nil), row...)
}

// Statement converts t into a statement table of kind with labels normalized.
func (t *Table) Statement(kind models.StatementKind) *models.StatementTable {
	st := &models.StatementTable{
		Kind:   kind,
		Header: append([]string(nil), t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, r := range t.Rows {
		row := append([]string(nil), r...)
		if len(row) > 0 {
			row[0] = NormalizeLabel(row[0])
		}
		st.Rows[i] = row
	}
	return st
}

// Statements locates all four statement tables. Missing ones are nil.
func Statements(tables []Table) map[models.StatementKind]*models.StatementTable {
	out := make(map[models.StatementKind]*models.StatementTable, len(StatementLocators))
	for _, l := range StatementLocators {
		if t := l.Find(tables); t != nil {
			out[l.Kind] = t.Statement(l.Kind)
		} else {
			out[l.Kind] = nil
		}
	}
	return out
}

// TruncateStatement is Truncate for a located statement table. nil stays nil.
func TruncateStatement(st *models.StatementTable, maxCols int) *models.StatementTable {
	if st == nil {
		return nil
	}
	t := Table{Header: st.Header, Rows: st.Rows}
	cut := t.Truncate(maxCols)
	return &models.StatementTable{Kind: st.Kind, Header: cut.Header, Rows: cut.Rows}
}
