// Package source queries the news search aggregator (the GDELT DOC 2.0 API)
// for article stubs matching a keyword and date window.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/pkg/models"
	"github.com/seenimoa/sentinews/pkg/utils"
)

// Errors returned by Search. Both end a run early with an empty result.
var (
	ErrSourceUnavailable = errors.New("source: search service unavailable")
	ErrSourceDecode      = errors.New("source: malformed search response")
	ErrInvalidQuery      = errors.New("source: invalid query")
)

// Response formats supported by the search service.
const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

const (
	// MaxRecordsCap is the largest result set the search service returns.
	MaxRecordsCap = 250

	defaultBaseURL = "https://api.gdeltproject.org/api/v2/doc/doc"
	maxBodyBytes   = 16 << 20
	seenDateLayout = "20060102T150405Z"
)

// GDELT is the article source client.
type GDELT struct {
	baseURL    string
	format     string
	maxRecords int
	sourceLang string
	timeout    time.Duration
	client     *http.Client
	parser     *gofeed.Parser
	log        *slog.Logger
}

// Option configures the GDELT client.
type Option func(*GDELT)

// WithBaseURL sets the API endpoint (tests point this at httptest servers).
func WithBaseURL(u string) Option {
	return func(g *GDELT) { g.baseURL = strings.TrimRight(u, "/") }
}

// WithFormat selects FormatJSON or FormatRSS.
func WithFormat(format string) Option {
	return func(g *GDELT) { g.format = strings.ToLower(format) }
}

// WithMaxRecords sets the result cap, clamped to 1..MaxRecordsCap.
func WithMaxRecords(n int) Option {
	return func(g *GDELT) {
		if n <= 0 || n > MaxRecordsCap {
			n = MaxRecordsCap
		}
		g.maxRecords = n
	}
}

// WithSourceLang restricts results to one source language ("english").
// An empty value disables the restriction.
func WithSourceLang(lang string) Option {
	return func(g *GDELT) { g.sourceLang = lang }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(g *GDELT) { g.timeout = d }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *GDELT) { g.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *GDELT) { g.log = l }
}

// NewGDELT creates a search client with JSON output, a 250 record cap and
// English sources.
func NewGDELT(opts ...Option) *GDELT {
	g := &GDELT{
		baseURL:    defaultBaseURL,
		format:     FormatJSON,
		maxRecords: MaxRecordsCap,
		sourceLang: "english",
		timeout:    10 * time.Second,
		parser:     gofeed.NewParser(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = infra.NewHTTPClient(g.timeout)
	}
	g.log = logging.Or(g.log)
	return g
}

// Name returns the source name.
func (g *GDELT) Name() string { return "GDELT" }

// Search issues one query for keyword over the inclusive date range and
// returns at most the configured number of stubs, in service order, with
// empty and duplicate URLs removed. It does not retry.
func (g *GDELT) Search(ctx context.Context, keyword string, dates utils.DateRange) ([]models.ArticleStub, error) {
	keyword = utils.NormalizeKeyword(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: empty keyword", ErrInvalidQuery)
	}
	if dates.Start.After(dates.End) {
		return nil, fmt.Errorf("%w: start date after end date", ErrInvalidQuery)
	}

	reqURL := g.buildURL(keyword, dates)

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := infra.Get(ctx, g.client, reqURL, nil)
	if err != nil {
		g.log.Error("source: request failed", "url", reqURL, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrSourceUnavailable, err)
	}

	var stubs []models.ArticleStub
	switch g.format {
	case FormatRSS:
		stubs, err = g.decodeRSS(raw)
	default:
		stubs, err = decodeJSON(raw)
	}
	if err != nil {
		g.log.Error("source: decode failed", "format", g.format, "body", utils.Truncate(string(raw), 200), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSourceDecode, err)
	}

	stubs = normalizeStubs(stubs, g.maxRecords)
	g.log.Info("source: search complete", "source", g.Name(), "keyword", keyword, "dates", dates.String(), "stubs", len(stubs))
	return stubs, nil
}

// buildURL renders the artlist query. Multi-word keywords are quoted so the
// service matches the exact phrase.
func (g *GDELT) buildURL(keyword string, dates utils.DateRange) string {
	from, to := dates.SearchWindow()

	q := keyword
	if strings.ContainsAny(q, " \t") && !strings.HasPrefix(q, `"`) {
		q = `"` + q + `"`
	}

	params := url.Values{}
	params.Set("query", q)
	params.Set("mode", "artlist")
	params.Set("startdatetime", from)
	params.Set("enddatetime", to)
	params.Set("maxrecords", strconv.Itoa(g.maxRecords))
	params.Set("format", g.format)
	if g.sourceLang != "" {
		params.Set("sourcelang", g.sourceLang)
	}
	return g.baseURL + "?" + params.Encode()
}

// gdeltResponse is the artlist JSON body.
type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SeenDate    string `json:"seendate"`
	Domain      string `json:"domain"`
	Language    string `json:"language"`
}

// decodeJSON parses an artlist body. An empty body or an object without
// "articles" is a valid empty result; anything else that is not a JSON
// object is malformed.
func decodeJSON(raw []byte) ([]models.ArticleStub, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var resp gdeltResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}

	stubs := make([]models.ArticleStub, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		s := models.ArticleStub{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			Domain:      a.Domain,
			Language:    a.Language,
		}
		if t, err := time.Parse(seenDateLayout, a.SeenDate); err == nil {
			s.SeenAt = t
		}
		stubs = append(stubs, s)
	}
	return stubs, nil
}

// decodeRSS parses an RSS body with gofeed.
func (g *GDELT) decodeRSS(raw []byte) ([]models.ArticleStub, error) {
	feed, err := g.parser.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}

	stubs := make([]models.ArticleStub, 0, len(feed.Items))
	for _, item := range feed.Items {
		s := models.ArticleStub{
			Title:       item.Title,
			Description: cleanHTML(item.Description),
			URL:         item.Link,
		}
		if u, err := url.Parse(item.Link); err == nil {
			s.Domain = u.Hostname()
		}
		if item.PublishedParsed != nil {
			s.SeenAt = *item.PublishedParsed
		}
		stubs = append(stubs, s)
	}
	return stubs, nil
}

// normalizeStubs trims fields, drops stubs without a URL, keeps the first
// occurrence of each URL and truncates to limit.
func normalizeStubs(in []models.ArticleStub, limit int) []models.ArticleStub {
	seen := make(map[string]struct{}, len(in))
	out := make([]models.ArticleStub, 0, len(in))
	for _, s := range in {
		s.URL = strings.TrimSpace(s.URL)
		s.Title = strings.TrimSpace(s.Title)
		s.Description = strings.TrimSpace(s.Description)
		if s.URL == "" {
			continue
		}
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		out = append(out, s)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
