package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/internal/extract"
	"github.com/seenimoa/sentinews/internal/langid"
	"github.com/seenimoa/sentinews/internal/logging"
	"github.com/seenimoa/sentinews/internal/relevance"
	"github.com/seenimoa/sentinews/internal/sentiment"
	"github.com/seenimoa/sentinews/internal/source"
)

// NewFromConfig builds the service handles once and wires them into an
// Orchestrator. The returned close function releases external connections.
func NewFromConfig(cfg *config.Config, log *slog.Logger, opts ...Option) (*Orchestrator, func() error, error) {
	log = logging.Or(log)
	closeFn := func() error { return nil }

	src := source.NewGDELT(
		source.WithBaseURL(cfg.Source.BaseURL),
		source.WithFormat(cfg.Source.Format),
		source.WithMaxRecords(cfg.Source.MaxRecords),
		source.WithSourceLang(cfg.Source.SourceLang),
		source.WithTimeout(cfg.Source.Timeout),
		source.WithLogger(log),
	)

	ext := extract.New(
		extract.WithTimeout(cfg.Extractor.Timeout),
		extract.WithMaxBodyBytes(cfg.Extractor.MaxBodyBytes),
		extract.WithUserAgent(cfg.Extractor.UserAgent),
		extract.WithMinParagraphChars(cfg.Extractor.MinParagraphChars),
		extract.WithLogger(log),
	)

	var cache extract.Cache
	switch cfg.Cache.Backend {
	case "memory":
		cache = extract.NewMemoryCache(cfg.Cache.TTL)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		rc := extract.NewRedisCache(client, cfg.Cache.TTL, log)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis cache unreachable, continuing without shared cache hits", "addr", cfg.Cache.Redis.Addr, "error", err)
		}
		cancel()
		cache = rc
		closeFn = client.Close
	}
	text := extract.NewCached(ext, cache)

	id, err := langid.New(cfg.Language.MinConfidence, languageCandidates(cfg.Language))
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("language identifier: %w", err)
	}
	filter := relevance.New(id, text, cfg.Language.Target, log)

	analyzer, err := sentiment.NewAnalyzerFromConfig(cfg.Classifier, log)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	base := []Option{
		WithWorkers(cfg.Pipeline.Workers),
		WithSourceRetry(cfg.Source.Retries, cfg.Source.RetryBackoff),
		WithLogger(log),
	}
	return New(src, filter, text, analyzer, append(base, opts...)...), closeFn, nil
}

// languageCandidates returns the configured detector languages with the
// target always included.
func languageCandidates(cfg config.LanguageConfig) []string {
	cands := cfg.Candidates
	if len(cands) == 0 {
		cands = langid.DefaultCandidates
	}
	if slices.Contains(cands, cfg.Target) {
		return cands
	}
	return append(slices.Clone(cands), cfg.Target)
}
