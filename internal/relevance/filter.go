// Package relevance decides whether an article stub is in the target
// language and about the search keyword.
package relevance

import (
	"context"
	"log/slog"

	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/pkg/models"
	"github.com/seenimoa/sentinews/pkg/utils"
)

// LanguageIdentifier returns the ISO 639-1 code of a text fragment.
type LanguageIdentifier interface {
	Identify(ctx context.Context, text string) (string, error)
}

// TextFetcher retrieves the body text of an article. An empty body means no
// text is available.
type TextFetcher interface {
	Extract(ctx context.Context, url string) models.ArticleText
}

// Filter applies the language and keyword checks. Checks run cheapest first:
// language of the title, language of the description, keyword in the
// title/description, and only then a full-text download.
type Filter struct {
	lang   LanguageIdentifier
	text   TextFetcher
	target string
	log    *slog.Logger
}

// New creates a Filter for the target ISO 639-1 language.
func New(lang LanguageIdentifier, text TextFetcher, target string, log *slog.Logger) *Filter {
	return &Filter{lang: lang, text: text, target: target, log: logging.Or(log)}
}

// Check returns the verdict for one stub. It never returns an error:
// identification failures fail closed with ReasonFilterError.
func (f *Filter) Check(ctx context.Context, stub models.ArticleStub, keyword string) models.RelevanceVerdict {
	v := models.RelevanceVerdict{URL: stub.URL}

	for _, field := range []struct{ name, text string }{
		{"title", stub.Title},
		{"description", stub.Description},
	} {
		if field.text == "" {
			continue
		}
		code, err := f.lang.Identify(ctx, field.text)
		if err != nil {
			f.log.Debug("relevance: language identification failed", "url", stub.URL, "field", field.name, "error", err)
			v.Reason = models.ReasonFilterError
			v.Detail = field.name + ": " + err.Error()
			return v
		}
		if code != f.target {
			v.Reason = models.ReasonLanguageMismatch
			v.Detail = field.name + " language " + code
			return v
		}
	}

	if utils.ContainsFold(stub.Title, keyword) || utils.ContainsFold(stub.Description, keyword) {
		v.Relevant = true
		v.Reason = models.ReasonKeywordMatch
		return v
	}

	text := f.text.Extract(ctx, stub.URL)
	if utils.ContainsFold(text.Body, keyword) {
		v.Relevant = true
		v.Reason = models.ReasonFullTextMatch
		return v
	}

	v.Reason = models.ReasonNoMatch
	if text.Empty() {
		v.Detail = "full text unavailable"
	}
	return v
}
