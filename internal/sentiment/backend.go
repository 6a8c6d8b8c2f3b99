package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/internal/llm"
	"github.com/seenimoa/sentinews/internal/logging"
)

// Backend names accepted in classifier.backend.
const (
	BackendLexicon     = "lexicon"
	BackendHuggingFace = "huggingface"
	BackendOllama      = "ollama"
	BackendOpenAI      = "openai"
)

// NewClassifier builds the ChunkClassifier selected by cfg.Backend.
func NewClassifier(cfg config.ClassifierConfig) (ChunkClassifier, error) {
	client := infra.NewHTTPClient(cfg.Timeout)

	switch cfg.Backend {
	case BackendLexicon, "":
		return Lexicon{}, nil
	case BackendHuggingFace:
		hf := cfg.HuggingFace
		return NewHuggingFace(hf.URL, hf.Model, hf.Token, client), nil
	case BackendOllama:
		p := llm.NewOllamaProvider(cfg.Ollama.URL,
			llm.WithOllamaModel(cfg.Ollama.Model),
			llm.WithOllamaHTTPClient(client))
		return NewLLM(p), nil
	case BackendOpenAI:
		p, err := llm.NewOpenAIProvider(cfg.OpenAI.Key,
			llm.WithOpenAIBaseURL(cfg.OpenAI.BaseURL),
			llm.WithOpenAIModel(cfg.OpenAI.Model),
			llm.WithOpenAIHTTPClient(client))
		if err != nil {
			return nil, fmt.Errorf("sentiment: openai backend: %w", err)
		}
		return NewLLM(p), nil
	}
	return nil, fmt.Errorf("sentiment: unknown backend %q", cfg.Backend)
}

// pingTimeout bounds the start-up reachability check of remote backends.
const pingTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// NewAnalyzerFromConfig wires the configured backend, chunk size, per-chunk
// timeout and rate limit into an Analyzer. An unreachable chat backend is
// logged, not fatal: its chunks fail per article at run time.
func NewAnalyzerFromConfig(cfg config.ClassifierConfig, log *slog.Logger) (*Analyzer, error) {
	clf, err := NewClassifier(cfg)
	if err != nil {
		return nil, err
	}
	log = logging.Or(log)
	if p, ok := clf.(pinger); ok {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		if err := p.Ping(ctx); err != nil {
			log.Warn("classifier backend unreachable", "backend", cfg.Backend, "error", err)
		}
		cancel()
	}
	return NewAnalyzer(clf,
		WithChunkSize(cfg.ChunkSize),
		WithChunkTimeout(cfg.Timeout),
		WithRateLimiter(infra.PerSecond(cfg.RatePerSec)),
		WithLogger(log),
	), nil
}
