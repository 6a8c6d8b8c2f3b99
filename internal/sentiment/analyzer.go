// Package sentiment classifies article text as POSITIVE or NEGATIVE by
// splitting it into token-aligned chunks, classifying each chunk and letting
// any negative chunk decide the article.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/pkg/models"
)

// DefaultChunkSize is the per-chunk token budget.
const DefaultChunkSize = 500

var (
	ErrEmptyText       = errors.New("sentiment: empty text")
	ErrChunkFailed     = errors.New("sentiment: chunk classification failed")
	ErrAllChunksFailed = errors.New("sentiment: all chunks failed")
	ErrBadLabel        = errors.New("sentiment: unrecognised label")
)

// Prediction is the label for one chunk. Score is informational only.
type Prediction struct {
	Label models.SentimentLabel `json:"label"`
	Score float64               `json:"score"`
}

// ChunkClassifier labels one chunk of text.
type ChunkClassifier interface {
	ClassifyChunk(ctx context.Context, text string) (Prediction, error)
}

// ClassifierFunc adapts a function to ChunkClassifier.
type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

func (f ClassifierFunc) ClassifyChunk(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// Aggregate combines chunk labels: NEGATIVE if any label is NEGATIVE,
// otherwise POSITIVE.
func Aggregate(labels []models.SentimentLabel) models.SentimentLabel {
	for _, l := range labels {
		if l == models.Negative {
			return models.Negative
		}
	}
	return models.Positive
}

// Result describes one article classification.
type Result struct {
	Label  models.SentimentLabel `json:"label"`
	Chunks int                   `json:"chunks"`
	Scored int                   `json:"scored"`
	Failed int                   `json:"failed"`
}

// Analyzer runs a ChunkClassifier over whole articles. Chunks of one article
// are classified sequentially; concurrency across articles belongs to the
// caller.
type Analyzer struct {
	clf       ChunkClassifier
	chunkSize int
	timeout   time.Duration
	limiter   *infra.RateLimiter
	log       *slog.Logger
}

// Option configures the Analyzer.
type Option func(*Analyzer)

// WithChunkSize sets the per-chunk token budget.
func WithChunkSize(n int) Option {
	return func(a *Analyzer) { a.chunkSize = n }
}

// WithChunkTimeout bounds each chunk classification call. Zero disables it.
func WithChunkTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

// WithRateLimiter throttles chunk calls across all articles.
func WithRateLimiter(rl *infra.RateLimiter) Option {
	return func(a *Analyzer) { a.limiter = rl }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// NewAnalyzer creates an Analyzer over clf.
func NewAnalyzer(clf ChunkClassifier, opts ...Option) *Analyzer {
	a := &Analyzer{clf: clf, chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logging.Or(a.log)
	return a
}

// Classify labels text. A failed chunk is skipped; when every chunk fails the
// article gets no label and ErrAllChunksFailed is returned. Classification
// stops at the first NEGATIVE chunk since no later chunk can change the
// outcome.
func (a *Analyzer) Classify(ctx context.Context, text string) (Result, error) {
	chunks := ChunkText(text, a.chunkSize)
	if len(chunks) == 0 {
		return Result{}, ErrEmptyText
	}

	res := Result{Chunks: len(chunks)}
	labels := make([]models.SentimentLabel, 0, len(chunks))
	var lastErr error

	for i, chunk := range chunks {
		p, err := a.classifyChunk(ctx, chunk)
		if err != nil {
			res.Failed++
			lastErr = err
			a.log.Debug("sentiment: chunk skipped", "chunk", i, "chunks", len(chunks), "error", err)
			continue
		}
		res.Scored++
		labels = append(labels, p.Label)
		if p.Label == models.Negative {
			break
		}
	}

	if res.Scored == 0 {
		return res, fmt.Errorf("%w: %d chunk(s): %w", ErrAllChunksFailed, res.Failed, lastErr)
	}
	res.Label = Aggregate(labels)
	return res, nil
}

func (a *Analyzer) classifyChunk(ctx context.Context, chunk string) (Prediction, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrChunkFailed, err)
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	p, err := a.clf.ClassifyChunk(ctx, chunk)
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrChunkFailed, err)
	}
	if !p.Label.IsValid() {
		return Prediction{}, fmt.Errorf("%w: %w %q", ErrChunkFailed, ErrBadLabel, p.Label)
	}
	return p, nil
}
