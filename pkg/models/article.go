// Package models defines the records that flow through a sentinews run:
// article stubs from the search service, extracted article text, relevance
// verdicts, sentiment labels and the final run report.
package models

import "time"

// ArticleStub is the lightweight title/description/URL record returned by the
// search service. Identity is the URL.
type ArticleStub struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Domain      string    `json:"domain,omitempty"`
	Language    string    `json:"language,omitempty"` // as reported by the search service
	SeenAt      time.Time `json:"seen_at,omitempty"`
}

// ArticleText is the extracted body of an article. An empty Body means the
// text could not be retrieved; it is not an error.
type ArticleText struct {
	URL  string `json:"url"`
	Body string `json:"body"`
}

// Empty reports whether no text was retrieved.
func (t ArticleText) Empty() bool { return t.Body == "" }

// RelevanceReason explains a RelevanceVerdict.
type RelevanceReason string

const (
	ReasonKeywordMatch     RelevanceReason = "keyword-match"
	ReasonFullTextMatch    RelevanceReason = "full-text-match"
	ReasonLanguageMismatch RelevanceReason = "language-mismatch"
	ReasonNoMatch          RelevanceReason = "no-match"
	ReasonFilterError      RelevanceReason = "filter-error"
)

// RelevanceVerdict is the filter's decision for one stub.
type RelevanceVerdict struct {
	URL      string          `json:"url"`
	Relevant bool            `json:"relevant"`
	Reason   RelevanceReason `json:"reason"`
	Detail   string          `json:"detail,omitempty"` // e.g. detected language
}
