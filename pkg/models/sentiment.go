package models

import (
	"fmt"
	"strings"
)

// SentimentLabel is the article-level (or chunk-level) sentiment.
type SentimentLabel string

const (
	Positive SentimentLabel = "POSITIVE"
	Negative SentimentLabel = "NEGATIVE"
)

// ParseSentimentLabel maps the label spellings used by classification
// services ("NEGATIVE", "negative", "LABEL_0", "-1", ...) to a SentimentLabel.
func ParseSentimentLabel(s string) (SentimentLabel, error) {
	switch strings.ToLower(strings.Trim(strings.TrimSpace(s), ".\"'")) {
	case "positive", "pos", "label_1", "1", "+1":
		return Positive, nil
	case "negative", "neg", "label_0", "-1", "- 1":
		return Negative, nil
	}
	return "", fmt.Errorf("unknown sentiment label %q", s)
}

// IsValid returns true if the label is one of the defined values.
func (l SentimentLabel) IsValid() bool {
	return l == Positive || l == Negative
}

// ScoredArticle pairs a stub with its aggregated sentiment.
type ScoredArticle struct {
	ArticleStub
	Label SentimentLabel `json:"label"`
}
