// Package pipeline runs the search → filter → extract → classify funnel for
// one keyword and date range, returning only relevant negative articles.
//
// Each stage fans out over a bounded worker pool and is a barrier: every
// operation of a stage, failed or not, completes before the next stage
// starts. Results are written into per-article slots indexed by the stub's
// position in the source response, so completion order never affects which
// article a verdict or label belongs to, and the final list keeps the
// source order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/internal/sentiment"
	"github.com/seenimoa/sentinews/internal/source"
	"github.com/seenimoa/sentinews/pkg/models"
	"github.com/seenimoa/sentinews/pkg/utils"
)

// DefaultWorkers is the default concurrency bound per stage.
const DefaultWorkers = 8

// ErrInvalidInput is returned by RunQuery for a bad keyword or date range.
var ErrInvalidInput = errors.New("invalid run input")

// Source queries the search service.
type Source interface {
	Search(ctx context.Context, keyword string, dates utils.DateRange) ([]models.ArticleStub, error)
}

// Filter decides whether a stub is relevant.
type Filter interface {
	Check(ctx context.Context, stub models.ArticleStub, keyword string) models.RelevanceVerdict
}

// TextFetcher retrieves article text; an empty body means unavailable.
type TextFetcher interface {
	Extract(ctx context.Context, url string) models.ArticleText
}

// Classifier labels a whole article.
type Classifier interface {
	Classify(ctx context.Context, text string) (sentiment.Result, error)
}

// StageEvent reports a state-machine transition.
type StageEvent struct {
	RunID string          `json:"run_id"`
	Stage models.Stage    `json:"stage"`
	Stats models.RunStats `json:"stats"`
}

// Observer receives stage transitions. It is called synchronously from the
// goroutine driving the run.
type Observer interface {
	StageChanged(ctx context.Context, ev StageEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev StageEvent)

func (f ObserverFunc) StageChanged(ctx context.Context, ev StageEvent) { f(ctx, ev) }

// Recorder persists finished runs.
type Recorder interface {
	SaveRun(ctx context.Context, res *models.PipelineResult) error
}

// Orchestrator drives runs. It holds no per-run state and may serve
// concurrent runs.
type Orchestrator struct {
	source     Source
	filter     Filter
	text       TextFetcher
	classifier Classifier

	workers      int
	retries      int
	retryBackoff time.Duration
	recorder     Recorder
	recordTTL    time.Duration
	log          *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithWorkers bounds the number of concurrent operations per stage.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) { o.workers = n }
}

// WithSourceRetry retries an unavailable search service up to retries extra
// times with exponential backoff starting at initial.
func WithSourceRetry(retries int, initial time.Duration) Option {
	return func(o *Orchestrator) {
		o.retries = retries
		o.retryBackoff = initial
	}
}

// WithRecorder persists every finished run.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator over the given services.
func New(src Source, filter Filter, text TextFetcher, clf Classifier, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:       src,
		filter:       filter,
		text:         text,
		classifier:   clf,
		workers:      DefaultWorkers,
		retryBackoff: time.Second,
		recordTTL:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	o.log = logging.Or(o.log)
	return o
}

// RunQuery validates raw front-end input (dates as YYYYMMDD or YYYY-MM-DD)
// and runs the pipeline. Input errors are returned before any network call.
func (o *Orchestrator) RunQuery(ctx context.Context, keyword, start, end string, obs Observer) (*models.PipelineResult, error) {
	keyword = utils.NormalizeKeyword(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("%w: keyword is required", ErrInvalidInput)
	}
	dates, err := utils.ParseDateRange(start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return o.Run(ctx, keyword, dates, obs), nil
}

// Run executes one run. It always returns a result; run-level failures are
// reported in Status and Error. Cancelling ctx stops new work from being
// issued, lets in-flight operations finish under their own timeouts and
// yields StatusCancelled. obs may be nil.
func (o *Orchestrator) Run(ctx context.Context, keyword string, dates utils.DateRange, obs Observer) *models.PipelineResult {
	r := &run{
		o:   o,
		ctx: ctx,
		// in-flight operations must not be cut short by run cancellation
		work: context.WithoutCancel(ctx),
		obs:  obs,
		res: &models.PipelineResult{
			RunID:     uuid.NewString(),
			Keyword:   keyword,
			StartDate: dates.Start.Format(time.DateOnly),
			EndDate:   dates.End.Format(time.DateOnly),
			Status:    models.StatusOK,
			Articles:  []models.ScoredArticle{},
			StartedAt: time.Now().UTC(),
		},
	}
	r.log = o.log.With("run_id", r.res.RunID, "keyword", keyword)

	r.execute(keyword, dates)

	r.res.FinishedAt = time.Now().UTC()
	r.enter(models.StageDone)
	r.log.Info("run finished",
		"status", r.res.Status,
		"fetched", r.res.Stats.Fetched,
		"relevant", r.res.Stats.Relevant,
		"negative", r.res.Stats.Negative,
		"excluded", r.res.Stats.Excluded,
		"duration", r.res.FinishedAt.Sub(r.res.StartedAt).Round(time.Millisecond))
	o.record(r.work, r.res)
	return r.res
}

// run is the state of one execution.
type run struct {
	o    *Orchestrator
	ctx  context.Context
	work context.Context
	obs  Observer
	res  *models.PipelineResult
	log  *slog.Logger
}

func (r *run) enter(stage models.Stage) {
	r.res.Stages = append(r.res.Stages, stage)
	r.log.Debug("stage", "stage", stage)
	if r.obs != nil {
		r.obs.StageChanged(r.work, StageEvent{RunID: r.res.RunID, Stage: stage, Stats: r.res.Stats})
	}
}

// cancelled marks the result cancelled if the run context is done.
func (r *run) cancelled() bool {
	if err := r.ctx.Err(); err != nil {
		r.res.Status = models.StatusCancelled
		r.res.Error = err.Error()
		return true
	}
	return false
}

func (r *run) execute(keyword string, dates utils.DateRange) {
	r.enter(models.StageFetching)
	stubs, err := r.fetch(keyword, dates)
	if err != nil {
		if r.cancelled() {
			return
		}
		r.res.Status = sourceStatus(err)
		r.res.Error = err.Error()
		r.log.Error("source failed", "status", r.res.Status, "error", err)
		return
	}
	r.res.Stats.Fetched = len(stubs)
	if len(stubs) == 0 || r.cancelled() {
		return
	}

	// Filtering
	r.enter(models.StageFiltering)
	verdicts := make([]models.RelevanceVerdict, len(stubs))
	issued := r.fanOut(len(stubs), func(ctx context.Context, i int) {
		verdicts[i] = r.o.filter.Check(ctx, stubs[i], keyword)
	})
	r.res.Verdicts = verdicts[:issued]

	var relevant []models.ArticleStub
	for i, v := range r.res.Verdicts {
		if !v.Relevant {
			continue
		}
		if v.URL != stubs[i].URL {
			r.log.Warn("verdict does not match its article, excluding", "url", stubs[i].URL, "verdict_url", v.URL)
			continue
		}
		relevant = append(relevant, stubs[i])
	}
	r.res.Stats.Relevant = len(relevant)
	if len(relevant) == 0 || r.cancelled() {
		return
	}

	// Extracting
	r.enter(models.StageExtracting)
	texts := make([]models.ArticleText, len(relevant))
	issued = r.fanOut(len(relevant), func(ctx context.Context, i int) {
		texts[i] = r.o.text.Extract(ctx, relevant[i].URL)
	})
	for i := range relevant[:issued] {
		if texts[i].Empty() || texts[i].URL != relevant[i].URL {
			r.log.Debug("no text, excluding", "url", relevant[i].URL)
			r.res.Stats.Excluded++
			continue
		}
		r.res.Stats.Extracted++
	}
	if r.res.Stats.Extracted == 0 || r.cancelled() {
		return
	}

	// Classifying
	r.enter(models.StageClassifying)
	labels := make([]models.SentimentLabel, len(relevant))
	issued = r.fanOut(len(relevant), func(ctx context.Context, i int) {
		if texts[i].Empty() || texts[i].URL != relevant[i].URL {
			return
		}
		out, err := r.o.classifier.Classify(ctx, texts[i].Body)
		if err != nil {
			r.log.Warn("classification failed, excluding", "url", relevant[i].URL, "error", err)
			return
		}
		labels[i] = out.Label
	})

	for i, stub := range relevant[:issued] {
		if texts[i].Empty() || texts[i].URL != stub.URL {
			continue
		}
		switch labels[i] {
		case models.Negative:
			r.res.Stats.Scored++
			r.res.Stats.Negative++
			r.res.Articles = append(r.res.Articles, models.ScoredArticle{ArticleStub: stub, Label: models.Negative})
		case models.Positive:
			r.res.Stats.Scored++
		default:
			r.res.Stats.Excluded++
		}
	}
}

// fanOut calls fn for indexes 0..n-1 on at most workers goroutines and waits
// for all of them. Once the run context is cancelled no further index is
// started and the run is marked cancelled; the number of indexes started is returned and they are always a
// prefix of 0..n-1. fn receives a context detached from run cancellation.
func (r *run) fanOut(n int, fn func(ctx context.Context, i int)) int {
	var g errgroup.Group
	g.SetLimit(r.o.workers)

	issued := 0
	for i := 0; i < n; i++ {
		if r.cancelled() {
			break
		}
		g.Go(func() error {
			fn(r.work, i)
			return nil
		})
		issued++
	}
	_ = g.Wait()
	return issued
}

// fetch calls the source, retrying only while it is unavailable. The result
// is cleaned of empty and duplicate URLs.
func (r *run) fetch(keyword string, dates utils.DateRange) ([]models.ArticleStub, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.o.retryBackoff
	eb.MaxElapsedTime = 0
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(r.o.retries, 0))), r.ctx)

	attempt := 0
	stubs, err := backoff.RetryNotifyWithData(func() ([]models.ArticleStub, error) {
		attempt++
		stubs, err := r.o.source.Search(r.work, keyword, dates)
		if err != nil && !errors.Is(err, source.ErrSourceUnavailable) {
			return nil, backoff.Permanent(err)
		}
		return stubs, err
	}, policy, func(err error, wait time.Duration) {
		r.log.Warn("source unavailable, retrying", "attempt", attempt, "wait", wait, "error", err)
	})
	if err != nil {
		return nil, err
	}
	return uniqueStubs(stubs), nil
}

func uniqueStubs(stubs []models.ArticleStub) []models.ArticleStub {
	seen := make(map[string]struct{}, len(stubs))
	out := make([]models.ArticleStub, 0, len(stubs))
	for _, s := range stubs {
		s.URL = strings.TrimSpace(s.URL)
		if s.URL == "" {
			continue
		}
		if _, dup := seen[s.URL]; dup {
			continue
		}
		seen[s.URL] = struct{}{}
		out = append(out, s)
	}
	return out
}

func sourceStatus(err error) models.RunStatus {
	if errors.Is(err, source.ErrSourceDecode) {
		return models.StatusSourceDecodeError
	}
	return models.StatusSourceUnavailable
}

func (o *Orchestrator) record(ctx context.Context, res *models.PipelineResult) {
	if o.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.recordTTL)
	defer cancel()
	if err := o.recorder.SaveRun(ctx, res); err != nil {
		o.log.Warn("failed to record run", "run_id", res.RunID, "error", err)
	}
}
