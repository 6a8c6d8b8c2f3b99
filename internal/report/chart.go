package report

import (
	"fmt"
	"strings"

	"github.com/seenimoa/sentinews/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 640)
	Height       int    // SVG height in pixels (default: 260)
	MarginTop    int    // top margin (default: 36)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 16)
	MarginLeft   int    // left margin, room for bar labels (default: 100)
	BgColor      string // background color (default: "#ffffff")
	TextColor    string // label color (default: "#333333")
	FontSize     int    // label font size (default: 12)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        640,
		Height:       260,
		MarginTop:    36,
		MarginRight:  60,
		MarginBottom: 16,
		MarginLeft:   100,
		BgColor:      "#ffffff",
		TextColor:    "#333333",
		FontSize:     12,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// BarItem is one labelled bar.
type BarItem struct {
	Label string
	Value int
	Color string // optional
}

// FunnelItems turns run stats into one bar per funnel step.
func FunnelItems(s models.RunStats) []BarItem {
	return []BarItem{
		{Label: "Fetched", Value: s.Fetched, Color: "#64748b"},
		{Label: "Relevant", Value: s.Relevant, Color: "#2563eb"},
		{Label: "Extracted", Value: s.Extracted, Color: "#0891b2"},
		{Label: "Scored", Value: s.Scored, Color: "#7c3aed"},
		{Label: "Negative", Value: s.Negative, Color: "#dc2626"},
	}
}

// HorizontalBarChart renders items as left-aligned bars scaled to the largest
// value, with the count printed after each bar.
func HorizontalBarChart(items []BarItem, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = DefaultChartConfig()
	}
	if len(items) == 0 {
		return emptySVG(cfg, "No data")
	}

	px, py, pw, ph := cfg.plotArea()

	maxVal := 0
	for _, item := range items {
		if item.Value > maxVal {
			maxVal = item.Value
		}
	}

	barH := float64(ph) / float64(len(items)) * 0.7
	if barH > 28 {
		barH = 28
	}
	gap := (float64(ph) - barH*float64(len(items))) / float64(len(items)+1)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	if cfg.Title != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
			cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))
	}

	for i, item := range items {
		by := float64(py) + gap + float64(i)*(barH+gap)
		color := item.Color
		if color == "" {
			color = "#2196f3"
		}

		bw := 0.0
		if maxVal > 0 {
			bw = float64(item.Value) / float64(maxVal) * float64(pw)
		}

		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end" dominant-baseline="middle">%s</text>`,
			px-8, by+barH/2, cfg.FontSize, cfg.TextColor, escapeXML(item.Label)))
		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			px, by, bw, barH, color))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s" dominant-baseline="middle">%d</text>`,
			float64(px)+bw+6, by+barH/2, cfg.FontSize, cfg.TextColor, item.Value))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="14" fill="#999" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.Height/2, escapeXML(msg)))
	sb.WriteString("</svg>")
	return sb.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
