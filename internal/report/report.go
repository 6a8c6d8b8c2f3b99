// Package report renders a finished run as an HTML page or a plain-text
// summary: the negative articles, the funnel counts and, optionally, the
// relevance verdict for every fetched article.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/seenimoa/sentinews/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Report Generator
// ════════════════════════════════════════════════════════════════════

// ReportFormat specifies the output format.
type ReportFormat string

const (
	FormatHTML ReportFormat = "html"
	FormatText ReportFormat = "text"
)

// ErrNilResult is returned when there is no run to render.
var ErrNilResult = errors.New("report: result is nil")

// ReportConfig controls report generation behaviour.
type ReportConfig struct {
	Format       ReportFormat // output format (default: HTML)
	Title        string       // custom report title (optional)
	ShowVerdicts bool         // include the per-article relevance table
	ChartCfg     ChartConfig  // funnel chart rendering config
}

// DefaultReportConfig returns sensible defaults.
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		Format:       FormatHTML,
		ShowVerdicts: true,
		ChartCfg:     DefaultChartConfig(),
	}
}

// FormatFromPath picks HTML for .html/.htm files and text otherwise.
func FormatFromPath(path string) ReportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return FormatHTML
	}
	return FormatText
}

// ════════════════════════════════════════════════════════════════════
// Report Data
// ════════════════════════════════════════════════════════════════════

// ReportData is the template model passed to HTML templates.
type ReportData struct {
	Title       string
	RunID       string
	Keyword     string
	StartDate   string
	EndDate     string
	GeneratedAt string
	Duration    string
	Status      string
	StatusClass string // CSS class: ok, failed
	Error       string

	Stats       models.RunStats
	FunnelChart template.HTML

	Articles     []ArticleRow
	Verdicts     []VerdictRow
	ShowVerdicts bool
}

// ArticleRow is a flattened result article.
type ArticleRow struct {
	Title  string
	URL    string
	Domain string
	SeenAt string
}

// VerdictRow is a flattened relevance verdict.
type VerdictRow struct {
	URL      string
	Relevant bool
	Reason   string
	Detail   string
}

// GenerateHTML renders res as a standalone HTML page.
func GenerateHTML(res *models.PipelineResult, cfg ReportConfig) (string, error) {
	if res == nil {
		return "", ErrNilResult
	}

	data := buildReportData(res, cfg)

	tmpl, err := template.New("report").Funcs(funcs).Parse(ReportTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// IndexHTML returns the search form page.
func IndexHTML() string {
	return IndexTemplate
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

// GenerateText renders res as a terminal-friendly summary.
func GenerateText(res *models.PipelineResult, cfg ReportConfig) (string, error) {
	if res == nil {
		return "", ErrNilResult
	}
	return renderTextReport(buildReportData(res, cfg)), nil
}

// Write renders res in cfg.Format to w.
func Write(w io.Writer, res *models.PipelineResult, cfg ReportConfig) error {
	var (
		out string
		err error
	)
	if cfg.Format == FormatText {
		out, err = GenerateText(res, cfg)
	} else {
		out, err = GenerateHTML(res, cfg)
	}
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// ════════════════════════════════════════════════════════════════════
// Internal: Build template data
// ════════════════════════════════════════════════════════════════════

func buildReportData(res *models.PipelineResult, cfg ReportConfig) ReportData {
	data := ReportData{
		Title:        cfg.Title,
		RunID:        res.RunID,
		Keyword:      res.Keyword,
		StartDate:    res.StartDate,
		EndDate:      res.EndDate,
		GeneratedAt:  ReportTimestamp(),
		Status:       string(res.Status),
		StatusClass:  "ok",
		Error:        res.Error,
		Stats:        res.Stats,
		ShowVerdicts: cfg.ShowVerdicts && len(res.Verdicts) > 0,
	}
	if data.Title == "" {
		data.Title = fmt.Sprintf("Negative coverage: %s", res.Keyword)
	}
	if !res.OK() {
		data.StatusClass = "failed"
	}
	if !res.StartedAt.IsZero() && !res.FinishedAt.IsZero() {
		data.Duration = FormatDuration(res.FinishedAt.Sub(res.StartedAt))
	}

	for _, a := range res.Articles {
		row := ArticleRow{Title: a.Title, URL: a.URL, Domain: a.Domain}
		if !a.SeenAt.IsZero() {
			row.SeenAt = a.SeenAt.UTC().Format("2006-01-02 15:04")
		}
		if row.Title == "" {
			row.Title = a.URL
		}
		data.Articles = append(data.Articles, row)
	}
	for _, v := range res.Verdicts {
		data.Verdicts = append(data.Verdicts, VerdictRow{
			URL:      v.URL,
			Relevant: v.Relevant,
			Reason:   string(v.Reason),
			Detail:   v.Detail,
		})
	}

	chartCfg := cfg.ChartCfg
	if chartCfg.Width == 0 {
		chartCfg = DefaultChartConfig()
	}
	chartCfg.Title = "Funnel"
	data.FunnelChart = template.HTML(HorizontalBarChart(FunnelItems(res.Stats), chartCfg))

	return data
}

func renderTextReport(d ReportData) string {
	var sb strings.Builder
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	sb.WriteString(line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", d.Title))
	sb.WriteString(fmt.Sprintf("  %s .. %s | Generated: %s\n", d.StartDate, d.EndDate, d.GeneratedAt))
	sb.WriteString(line + "\n")

	sb.WriteString(fmt.Sprintf("  Status: %s", d.Status))
	if d.Duration != "" {
		sb.WriteString(fmt.Sprintf(" in %s", d.Duration))
	}
	sb.WriteString("\n")
	if d.Error != "" {
		sb.WriteString(fmt.Sprintf("  Error:  %s\n", d.Error))
	}
	s := d.Stats
	sb.WriteString(fmt.Sprintf("  Fetched %d | Relevant %d | Extracted %d | Scored %d | Negative %d | Excluded %d\n",
		s.Fetched, s.Relevant, s.Extracted, s.Scored, s.Negative, s.Excluded))
	sb.WriteString(thinLine + "\n")

	if len(d.Articles) == 0 {
		sb.WriteString("  No negative articles.\n")
	}
	for i, a := range d.Articles {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, a.Title))
		sb.WriteString(fmt.Sprintf("     %s\n", a.URL))
	}

	if d.ShowVerdicts {
		sb.WriteString(thinLine + "\n")
		sb.WriteString("  ■ RELEVANCE\n")
		for _, v := range d.Verdicts {
			mark := "-"
			if v.Relevant {
				mark = "+"
			}
			sb.WriteString(fmt.Sprintf("    %s %-18s %s", mark, v.Reason, v.URL))
			if v.Detail != "" {
				sb.WriteString(fmt.Sprintf(" (%s)", v.Detail))
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString(line + "\n")
	return sb.String()
}

// ReportTimestamp returns the current UTC time formatted for reports.
func ReportTimestamp() string {
	return time.Now().UTC().Format("02 Jan 2006, 15:04 UTC")
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
