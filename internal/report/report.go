// Package report renders dashboard results as an HTML page for the browser
// and as plain text for the terminal.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/seenimoa/fundash/internal/dashboard"
	"github.com/seenimoa/fundash/pkg/models"
	"github.com/seenimoa/fundash/pkg/utils"
)

// DefaultTitle is the page heading.
const DefaultTitle = "Indian Stock Fundamentals Dashboard"

// UnavailableWarning prefixes the list of tickers that could not be loaded.
const UnavailableWarning = "Data unavailable for:"

// PageInput is everything the dashboard page shows.
type PageInput struct {
	Title     string
	Result    *dashboard.Result
	Stocks    []models.Stock // selector options
	SessionID string
	Chat      []models.ChatMessage
	ChatError string
}

// ════════════════════════════════════════════════════════════════════
// Template data
// ════════════════════════════════════════════════════════════════════

// PageData is the flattened template model.
type PageData struct {
	Title       string
	GeneratedAt string
	Options     []Option
	Message     string
	Unavailable string
	Note        string
	Comparison  dashboard.Matrix
	Links       []LinkRow
	Sections    []SectionData
	HasRows     bool
	SessionID   string
	Chat        []ChatTurn
	ChatError   string
	Tickers     string
}

// Option is one entry of the stock selector.
type Option struct {
	Ticker   string
	Label    string
	Selected bool
}

// LinkRow carries the company page and balance sheet links of one stock.
type LinkRow struct {
	Name         string
	CompanyPage  string
	BalanceSheet string
	Partial      bool
}

// SectionData is one stock's statements and announcements.
type SectionData struct {
	Ticker        string
	Name          string
	Statements    []StatementData
	Announcements []dashboard.SharedAnnouncement
}

// StatementData is one statement table, or its placeholder.
type StatementData struct {
	Title  string
	Header []string
	Rows   [][]string
	Empty  string
}

// ChatTurn is one rendered chat message.
type ChatTurn struct {
	User bool
	HTML template.HTML
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
)

var page = template.Must(template.New("dashboard").Parse(DashboardTemplate))

// RenderMarkdown converts a chat answer to HTML. Raw HTML in the source is
// not passed through.
func RenderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// BuildPage flattens in into the template model.
func BuildPage(in PageInput) PageData {
	d := PageData{
		Title:     in.Title,
		SessionID: in.SessionID,
		ChatError: in.ChatError,
	}
	if d.Title == "" {
		d.Title = DefaultTitle
	}

	selected := map[string]bool{}
	res := in.Result
	if res != nil {
		for _, t := range res.Tickers {
			selected[t] = true
		}
		d.Tickers = strings.Join(res.Tickers, ",")
		d.GeneratedAt = utils.FormatDateTimeIST(res.GeneratedAt)
		d.Message = res.Message
		d.Note = res.Note
		if len(res.Unavailable) > 0 {
			d.Unavailable = UnavailableWarning + " " + strings.Join(res.Unavailable, ", ")
		}
		if len(res.Rows) > 0 {
			d.HasRows = true
			d.Comparison = res.Comparison()
		}
		for _, row := range res.Rows {
			d.Links = append(d.Links, LinkRow{
				Name:         row.Name,
				CompanyPage:  row.Metrics.CompanyPage,
				BalanceSheet: row.Metrics.BalanceSheetPage,
				Partial:      row.Partial,
			})
		}
		for _, s := range res.Sections {
			d.Sections = append(d.Sections, sectionData(s))
		}
	}

	for _, s := range in.Stocks {
		d.Options = append(d.Options, Option{Ticker: s.Ticker, Label: s.Label(), Selected: selected[s.Ticker]})
	}

	for _, m := range in.Chat {
		turn := ChatTurn{User: m.Role == models.ChatRoleUser}
		if turn.User {
			turn.HTML = template.HTML(template.HTMLEscapeString(m.Content))
		} else {
			turn.HTML = RenderMarkdown(m.Content)
		}
		d.Chat = append(d.Chat, turn)
	}
	return d
}

func sectionData(s dashboard.Section) SectionData {
	sd := SectionData{Ticker: s.Ticker, Name: s.Name, Announcements: s.Announcements}
	for _, st := range s.Statements {
		item := StatementData{Title: st.Title, Empty: st.Empty}
		if st.Table != nil {
			item.Header = st.Table.Header
			item.Rows = st.Table.Rows
		} else if item.Empty == "" {
			item.Empty = dashboard.EmptyTableMessage
		}
		sd.Statements = append(sd.Statements, item)
	}
	return sd
}

// RenderDashboard writes the dashboard page for in to w.
func RenderDashboard(w io.Writer, in PageInput) error {
	if err := page.Execute(w, BuildPage(in)); err != nil {
		return fmt.Errorf("executing template: %w", err)
	}
	return nil
}

// GenerateHTML returns the dashboard page as a string.
func GenerateHTML(in PageInput) (string, error) {
	var buf bytes.Buffer
	if err := RenderDashboard(&buf, in); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// Plain text
// ════════════════════════════════════════════════════════════════════

// GenerateText renders res for the terminal: the comparison table, each
// stock's statements and announcements, then the unavailable note.
func GenerateText(res *dashboard.Result) string {
	var sb strings.Builder
	line := strings.Repeat("═", 72)
	thinLine := strings.Repeat("─", 72)

	sb.WriteString(line + "\n")
	sb.WriteString("  " + DefaultTitle + "\n")
	if res == nil {
		sb.WriteString(line + "\n")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("  Generated: %s\n", utils.FormatDateTimeIST(res.GeneratedAt)))
	sb.WriteString(line + "\n")

	if res.Message != "" {
		sb.WriteString("\n  " + res.Message + "\n")
		return sb.String()
	}

	if len(res.Rows) > 0 {
		sb.WriteString("\n  ■ KEY METRICS\n")
		cmp := res.Comparison()
		writeMatrix(&sb, cmp.Header, cmp.Rows)
		for _, row := range res.Rows {
			if row.Metrics.CompanyPage == "" {
				continue
			}
			sb.WriteString(fmt.Sprintf("    %s: %s\n", row.Name, row.Metrics.CompanyPage))
		}
		sb.WriteString(thinLine + "\n")
	}

	for _, s := range res.Sections {
		sb.WriteString(fmt.Sprintf("\n  ■ %s (%s)\n", s.Name, s.Ticker))
		for _, st := range s.Statements {
			sb.WriteString(fmt.Sprintf("\n    %s\n", st.Title))
			if st.Table == nil {
				sb.WriteString("    " + dashboard.EmptyTableMessage + "\n")
				continue
			}
			writeMatrix(&sb, st.Table.Header, st.Table.Rows)
		}
		sb.WriteString("\n    Announcements\n")
		if len(s.Announcements) == 0 {
			sb.WriteString("    " + dashboard.EmptyTableMessage + "\n")
		}
		for _, a := range s.Announcements {
			sb.WriteString(FormatAnnouncement(a.Announcement))
		}
		sb.WriteString(thinLine + "\n")
	}

	if len(res.Unavailable) > 0 {
		sb.WriteString(fmt.Sprintf("\n  %s %s\n", UnavailableWarning, strings.Join(res.Unavailable, ", ")))
		if res.Note != "" {
			sb.WriteString("  " + res.Note + "\n")
		}
	}
	return sb.String()
}

// FormatAnnouncement renders one announcement as an indented text block.
func FormatAnnouncement(a models.Announcement) string {
	var sb strings.Builder
	sb.WriteString("    • " + a.Title + "\n")
	if a.Detail != "" {
		sb.WriteString("      " + a.Detail + "\n")
	}
	if a.URL != "" {
		sb.WriteString("      " + a.URL + "\n")
	}
	return sb.String()
}

func writeMatrix(sb *strings.Builder, header []string, rows [][]string) {
	widths := make([]int, len(header))
	measure := func(cells []string) {
		for i, c := range cells {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if n := len([]rune(c)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	measure(header)
	for _, r := range rows {
		measure(r)
	}
	write := func(cells []string) {
		sb.WriteString("   ")
		for i, c := range cells {
			sb.WriteString(" " + c + strings.Repeat(" ", widths[i]-len([]rune(c))))
		}
		sb.WriteString("\n")
	}
	write(header)
	for _, r := range rows {
		write(r)
	}
}
