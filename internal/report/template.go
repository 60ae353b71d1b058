package report

// DashboardTemplate is the HTML template for the dashboard page. Styling
// lives in the embedded stylesheet served under /static/.
const DashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/static/dashboard.css">
</head>
<body>
<div class="header">
  <h1>{{.Title}}</h1>
  {{if .GeneratedAt}}<p class="muted">Updated {{.GeneratedAt}}</p>{{end}}
</div>

<form class="selector" method="get" action="/">
  <label for="ticker">Select stocks</label>
  <select id="ticker" name="ticker" multiple size="8">
    {{range .Options}}<option value="{{.Ticker}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
    {{end}}
  </select>
  <button type="submit">Refresh</button>
</form>

{{if .Message}}<div class="info">{{.Message}}</div>{{end}}

{{if .HasRows}}
<h2>Key Metrics</h2>
<table class="metrics">
  <thead><tr>{{range .Comparison.Header}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody>
  {{range .Comparison.Rows}}<tr>{{range $i, $c := .}}{{if eq $i 0}}<th>{{$c}}</th>{{else}}<td>{{$c}}</td>{{end}}{{end}}</tr>
  {{end}}
  </tbody>
</table>
<ul class="links">
  {{range .Links}}<li><strong>{{.Name}}</strong>{{if .Partial}} <span class="muted">(price data only)</span>{{end}}
    {{if .CompanyPage}}<a href="{{.CompanyPage}}" target="_blank" rel="noopener">Company Page</a>{{end}}
    {{if .BalanceSheet}}<a href="{{.BalanceSheet}}" target="_blank" rel="noopener">Balance Sheet</a>{{end}}
  </li>
  {{end}}
</ul>
{{end}}

{{range .Sections}}
<section class="stock">
  <h2>{{.Name}} <span class="ticker-badge">{{.Ticker}}</span></h2>
  {{range .Statements}}
  <h3>{{.Title}}</h3>
  {{if .Empty}}<p class="muted">{{.Empty}}</p>{{else}}
  <div class="scroll"><table class="statement">
    <thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
    <tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{end}}</tbody>
  </table></div>
  {{end}}
  {{end}}
  <h3>Announcements</h3>
  {{if .Announcements}}
  <ul class="announcements">
    {{range .Announcements}}<li>
      <div class="title">{{if .URL}}<a href="{{.URL}}" target="_blank" rel="noopener">{{.Title}}</a>{{else}}{{.Title}}{{end}}</div>
      {{if .Detail}}<div class="muted">{{.Detail}}</div>{{end}}
      <a class="share" href="{{.ShareURL}}" target="_blank" rel="noopener">Send on WhatsApp</a>
    </li>
    {{end}}
  </ul>
  {{else}}<p class="muted">No data available.</p>{{end}}
</section>
{{end}}

{{if .Unavailable}}
<div class="warning">{{.Unavailable}}</div>
{{if .Note}}<p class="muted">{{.Note}}</p>{{end}}
{{end}}

<section class="chat">
  <h2>Ask about these stocks</h2>
  <div class="history">
    {{range .Chat}}<div class="turn {{if .User}}user{{else}}assistant{{end}}">{{.HTML}}</div>
    {{end}}
  </div>
  {{if .ChatError}}<div class="warning">{{.ChatError}}</div>{{end}}
  <form method="post" action="/chat">
    <input type="hidden" name="session_id" value="{{.SessionID}}">
    <input type="hidden" name="tickers" value="{{.Tickers}}">
    <textarea name="message" rows="3" placeholder="e.g. Which of these has the better ROE?"></textarea>
    <button type="submit">Send</button>
  </form>
</section>

<p class="disclaimer muted">Data scraped from public pages for educational use. Not financial advice.</p>
</body>
</html>
`
