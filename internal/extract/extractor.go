// Package extract downloads article pages and turns their markup into
// readable body text. Retrieval failures are reported as empty text, never as
// errors: they are expected and frequent.
package extract

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/pkg/models"
)

// ParagraphSeparator joins extracted paragraphs.
const ParagraphSeparator = "\n\n"

// noiseSelectors are removed before paragraph extraction.
const noiseSelectors = "script, style, noscript, nav, header, footer, aside, form, figure figcaption"

// Extractor fetches a URL and extracts its body text.
type Extractor struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
	minParagraph int
	log          *slog.Logger
}

// Option configures the Extractor.
type Option func(*Extractor)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) { e.timeout = d }
}

// WithMaxBodyBytes caps how much of a page is read.
func WithMaxBodyBytes(n int64) Option {
	return func(e *Extractor) { e.maxBodyBytes = n }
}

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) Option {
	return func(e *Extractor) { e.userAgent = ua }
}

// WithMinParagraphChars drops paragraphs shorter than n characters.
func WithMinParagraphChars(n int) Option {
	return func(e *Extractor) { e.minParagraph = n }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Extractor) { e.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// New creates an Extractor with a 15s timeout and a 5 MiB body cap.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		timeout:      15 * time.Second,
		maxBodyBytes: 5 << 20,
		userAgent:    infra.DefaultUserAgent,
		minParagraph: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = infra.NewHTTPClient(e.timeout)
	}
	e.log = logging.Or(e.log)
	return e
}

// Extract downloads pageURL and returns its body text. Any failure (bad URL,
// connection error, timeout, non-200 status, unparsable markup) yields an
// ArticleText with an empty Body. It never retries.
func (e *Extractor) Extract(ctx context.Context, pageURL string) models.ArticleText {
	result := models.ArticleText{URL: pageURL}

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		e.log.Debug("extract: invalid url", "url", pageURL)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	body, err := infra.Get(ctx, e.client, pageURL, map[string]string{
		"User-Agent": e.userAgent,
		"Accept":     "text/html,application/xhtml+xml,*/*;q=0.8",
	})
	if err != nil {
		e.log.Debug("extract: fetch failed", "url", pageURL, "error", err)
		return result
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, e.maxBodyBytes))
	if err != nil {
		e.log.Debug("extract: read failed", "url", pageURL, "error", err)
		return result
	}

	result.Body = ExtractText(raw, u, e.minParagraph)
	if result.Body == "" {
		e.log.Debug("extract: no text found", "url", pageURL)
	}
	return result
}

// ExtractText returns the paragraph text of an HTML document, joined with
// ParagraphSeparator. When the page has no <p> text, the readability
// algorithm is used instead. pageURL may be nil.
func ExtractText(html []byte, pageURL *url.URL, minParagraphChars int) string {
	if text := paragraphText(html, minParagraphChars); text != "" {
		return text
	}
	return readableText(html, pageURL)
}

func paragraphText(html []byte, minChars int) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(noiseSelectors).Remove()

	var paras []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		text := collapseSpace(s.Text())
		if text != "" && len([]rune(text)) >= minChars {
			paras = append(paras, text)
		}
	})
	return strings.Join(paras, ParagraphSeparator)
}

func readableText(html []byte, pageURL *url.URL) string {
	if pageURL == nil {
		pageURL = &url.URL{Scheme: "https", Host: "localhost"}
	}
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return ""
	}
	return collapseSpace(article.TextContent)
}

// collapseSpace trims s and folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
