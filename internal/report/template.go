package report

const styles = `
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 900px;
    margin: 0 auto;
    padding: 20px;
  }
  h1 { font-size: 1.5rem; margin-bottom: 4px; color: var(--accent); }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  p { margin: 6px 0; }
  a { color: var(--accent); }
  .muted { color: var(--muted); font-size: 0.85rem; }
  .header { border-bottom: 3px solid var(--accent); padding-bottom: 12px; margin-bottom: 16px; }
  .status { display: inline-block; padding: 1px 8px; border-radius: 3px; font-size: 0.8rem; font-weight: 600; }
  .status.ok { background: #dcfce7; color: var(--green); }
  .status.failed { background: #fef2f2; color: var(--red); }
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: left; padding: 8px; font-weight: 600; }
  td { padding: 8px; border-bottom: 1px solid var(--border); word-break: break-word; }
  .chart-container { margin: 12px 0; overflow-x: auto; }
  .chart-container svg { max-width: 100%; height: auto; }
  form { display: grid; gap: 12px; max-width: 420px; }
  label { display: grid; gap: 4px; font-weight: 600; }
  input { padding: 6px 8px; border: 1px solid var(--border); border-radius: 4px; font-size: 1rem; }
  button { padding: 8px; background: var(--accent); color: white; border: 0; border-radius: 4px; font-size: 1rem; cursor: pointer; }
  .footer { margin-top: 30px; padding-top: 12px; border-top: 2px solid var(--border); font-size: 0.8rem; color: var(--muted); text-align: center; }
`

// ReportTemplate is the HTML template for a run report.
const ReportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>` + styles + `</style>
</head>
<body>

<div class="header">
  <h1>{{.Title}}</h1>
  <p class="muted">{{.StartDate}} to {{.EndDate}} · generated {{.GeneratedAt}}{{if .RunID}} · run {{.RunID}}{{end}}</p>
  <p><span class="status {{.StatusClass}}">{{.Status}}</span>{{if .Duration}} <span class="muted">in {{.Duration}}</span>{{end}}</p>
  {{if .Error}}<p class="muted">{{.Error}}</p>{{end}}
</div>

<h2>Negative articles</h2>
{{if .Articles}}
<table>
  <tr><th>#</th><th>Title</th><th>Source</th><th>Seen</th></tr>
  {{range $i, $a := .Articles}}
  <tr>
    <td>{{inc $i}}</td>
    <td><a href="{{$a.URL}}" rel="noopener noreferrer">{{$a.Title}}</a></td>
    <td>{{$a.Domain}}</td>
    <td>{{$a.SeenAt}}</td>
  </tr>
  {{end}}
</table>
{{else}}
<p>No negative articles.</p>
{{end}}

<h2>Funnel</h2>
<div class="chart-container">{{.FunnelChart}}</div>
<p class="muted">Fetched {{.Stats.Fetched}} · Relevant {{.Stats.Relevant}} · Extracted {{.Stats.Extracted}} · Scored {{.Stats.Scored}} · Negative {{.Stats.Negative}} · Excluded {{.Stats.Excluded}}</p>

{{if .ShowVerdicts}}
<h2>Relevance</h2>
<table>
  <tr><th>URL</th><th>Relevant</th><th>Reason</th><th>Detail</th></tr>
  {{range .Verdicts}}
  <tr>
    <td>{{.URL}}</td>
    <td>{{if .Relevant}}yes{{else}}no{{end}}</td>
    <td>{{.Reason}}</td>
    <td>{{.Detail}}</td>
  </tr>
  {{end}}
</table>
{{end}}

<div class="footer">sentinews</div>
</body>
</html>
`

// IndexTemplate is the search form served at the web root. It posts to
// /results.
const IndexTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>sentinews</title>
<style>` + styles + `</style>
</head>
<body>
<div class="header">
  <h1>sentinews</h1>
  <p class="muted">Find negative news coverage for a keyword.</p>
</div>
<form method="POST" action="/results">
  <label>Keyword <input type="text" name="keyword" required></label>
  <label>Start date <input type="date" name="start_date" required></label>
  <label>End date <input type="date" name="end_date" required></label>
  <button type="submit">Analyze</button>
</form>
</body>
</html>
`
