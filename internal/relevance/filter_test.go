package relevance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/internal/langid"
	"github.com/seenimoa/sentinews/pkg/models"
)

// fakeLang labels text containing "français" as French, "??" as
// unidentifiable and everything else as English.
type fakeLang struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeLang) Identify(_ context.Context, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	switch {
	case strings.Contains(text, "??"):
		return "", errors.New("too short")
	case strings.Contains(text, "français"):
		return "fr", nil
	default:
		return "en", nil
	}
}

type fakeText struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  []string
}

func (f *fakeText) Extract(_ context.Context, url string) models.ArticleText {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, url)
	return models.ArticleText{URL: url, Body: f.bodies[url]}
}

func TestCheck(t *testing.T) {
	text := &fakeText{bodies: map[string]string{
		"https://c": "Investigators say the Rangoon Ruby was never insured.",
		"https://d": "Nothing relevant here.",
	}}

	tests := []struct {
		name      string
		stub      models.ArticleStub
		want      models.RelevanceReason
		relevant  bool
		wantFetch bool
	}{
		{
			name: "keyword in title",
			stub: models.ArticleStub{URL: "https://a", Title: "Rangoon ruby stolen"},
			want: models.ReasonKeywordMatch, relevant: true,
		},
		{
			name: "keyword in description",
			stub: models.ArticleStub{URL: "https://a2", Title: "Gem theft", Description: "The RANGOON RUBY is gone"},
			want: models.ReasonKeywordMatch, relevant: true,
		},
		{
			name: "description not english",
			stub: models.ArticleStub{URL: "https://b", Title: "Rangoon ruby", Description: "Un article en français"},
			want: models.ReasonLanguageMismatch,
		},
		{
			name: "title not english",
			stub: models.ArticleStub{URL: "https://b2", Title: "Le rubis en français"},
			want: models.ReasonLanguageMismatch,
		},
		{
			name: "full text match",
			stub: models.ArticleStub{URL: "https://c", Title: "Museum security questioned"},
			want: models.ReasonFullTextMatch, relevant: true, wantFetch: true,
		},
		{
			name: "no match",
			stub: models.ArticleStub{URL: "https://d", Title: "Weather report"},
			want: models.ReasonNoMatch, wantFetch: true,
		},
		{
			name: "full text unavailable",
			stub: models.ArticleStub{URL: "https://e", Title: "Weather report"},
			want: models.ReasonNoMatch, wantFetch: true,
		},
		{
			name: "identification failure fails closed",
			stub: models.ArticleStub{URL: "https://f", Title: "??"},
			want: models.ReasonFilterError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text.calls = nil
			f := New(&fakeLang{}, text, "en", nil)
			v := f.Check(context.Background(), tt.stub, "rangoon ruby")
			if v.Reason != tt.want || v.Relevant != tt.relevant {
				t.Errorf("verdict = %+v, want reason %s relevant %v", v, tt.want, tt.relevant)
			}
			if v.URL != tt.stub.URL {
				t.Errorf("URL = %q, want %q", v.URL, tt.stub.URL)
			}
			if fetched := len(text.calls) > 0; fetched != tt.wantFetch {
				t.Errorf("full text fetched = %v, want %v", fetched, tt.wantFetch)
			}
		})
	}
}

func TestCheckShortCircuitsOnTitle(t *testing.T) {
	lang := &fakeLang{}
	f := New(lang, &fakeText{}, "en", nil)
	f.Check(context.Background(), models.ArticleStub{
		URL:         "https://x",
		Title:       "Titre en français",
		Description: "English description",
	}, "ruby")
	if len(lang.calls) != 1 {
		t.Errorf("identifier called %d times, want 1", len(lang.calls))
	}
}

func TestCheckSkipsEmptyFields(t *testing.T) {
	lang := &fakeLang{}
	f := New(lang, &fakeText{}, "en", nil)
	v := f.Check(context.Background(), models.ArticleStub{URL: "https://x"}, "ruby")
	if len(lang.calls) != 0 {
		t.Errorf("identifier called %d times for empty fields", len(lang.calls))
	}
	if v.Reason != models.ReasonNoMatch {
		t.Errorf("Reason = %s, want no-match", v.Reason)
	}
}

// Runs the default language identifier over headline-length stubs, which is
// what the search service actually returns.
func TestCheckWithDefaultIdentifier(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	id, err := langid.New(cfg.Language.MinConfidence, cfg.Language.Candidates)
	if err != nil {
		t.Fatalf("langid.New: %v", err)
	}
	text := &fakeText{bodies: map[string]string{
		"https://c": "Curators confirmed the Rangoon Ruby will not be shown again this year.",
	}}
	f := New(id, text, cfg.Language.Target, nil)

	tests := []struct {
		stub     models.ArticleStub
		want     models.RelevanceReason
		relevant bool
	}{
		{
			stub: models.ArticleStub{URL: "https://a", Title: "Rangoon Ruby stolen from museum"},
			want: models.ReasonKeywordMatch, relevant: true,
		},
		{
			stub: models.ArticleStub{URL: "https://a2", Title: "Police arrest suspects in gem heist",
				Description: "Officers say the Rangoon Ruby has not been recovered"},
			want: models.ReasonKeywordMatch, relevant: true,
		},
		{
			stub: models.ArticleStub{URL: "https://b", Title: "Police report on the Rangoon ruby",
				Description: "Le célèbre rubis a été volé au musée tard mardi soir, selon la police."},
			want: models.ReasonLanguageMismatch,
		},
		{
			stub: models.ArticleStub{URL: "https://c", Title: "Museum curators review the new exhibition",
				Description: "A look at what is on show this season"},
			want: models.ReasonFullTextMatch, relevant: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.stub.URL, func(t *testing.T) {
			v := f.Check(context.Background(), tt.stub, "rangoon ruby")
			if v.Reason != tt.want || v.Relevant != tt.relevant {
				t.Errorf("verdict = %+v, want reason %s relevant %v", v, tt.want, tt.relevant)
			}
		})
	}
}
