package sentiment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seenimoa/sentinews/internal/config"
	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/internal/llm"
	"github.com/seenimoa/sentinews/pkg/models"
)

func nWords(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunkBoundary(t *testing.T) {
	tests := []struct {
		tokens, size, want int
	}{
		{1500, 500, 3},
		{1501, 500, 4},
		{499, 500, 1},
		{500, 500, 1},
		{10, 0, 1},
		{0, 500, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.tokens, tt.size), func(t *testing.T) {
			chunks := Chunk(Tokenize(nWords(tt.tokens)), tt.size)
			if len(chunks) != tt.want {
				t.Fatalf("got %d chunks, want %d", len(chunks), tt.want)
			}
			total := 0
			for _, c := range chunks {
				if tt.size > 0 && len(c) > tt.size {
					t.Errorf("chunk of %d tokens exceeds %d", len(c), tt.size)
				}
				total += len(c)
			}
			if total != tt.tokens {
				t.Errorf("chunks hold %d tokens, want %d", total, tt.tokens)
			}
		})
	}
}

func TestChunkTextTokenAligned(t *testing.T) {
	text := "  multi-unit   tokens,\tnever\nsplit. "
	got := ChunkText(text, 2)
	want := []string{"multi-unit tokens,", "never split."}
	if len(got) != len(want) {
		t.Fatalf("got %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAggregate(t *testing.T) {
	P, N := models.Positive, models.Negative
	tests := []struct {
		labels []models.SentimentLabel
		want   models.SentimentLabel
	}{
		{[]models.SentimentLabel{P, N, P}, N},
		{[]models.SentimentLabel{P, P}, P},
		{[]models.SentimentLabel{N}, N},
		{[]models.SentimentLabel{P, P, P, N}, N},
	}
	for _, tt := range tests {
		if got := Aggregate(tt.labels); got != tt.want {
			t.Errorf("Aggregate(%v) = %s, want %s", tt.labels, got, tt.want)
		}
	}
}

// scripted returns labels (or errors) in call order.
type scripted struct {
	calls   atomic.Int32
	results []any // models.SentimentLabel or error
}

func (s *scripted) ClassifyChunk(_ context.Context, _ string) (Prediction, error) {
	i := int(s.calls.Add(1)) - 1
	switch r := s.results[i%len(s.results)].(type) {
	case error:
		return Prediction{}, r
	case models.SentimentLabel:
		return Prediction{Label: r, Score: 0.9}, nil
	}
	panic("bad script")
}

func TestAnalyzerAnyNegativeWins(t *testing.T) {
	clf := &scripted{results: []any{models.Positive, models.Negative, models.Positive}}
	a := NewAnalyzer(clf, WithChunkSize(2))
	res, err := a.Classify(context.Background(), nWords(6))
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != models.Negative {
		t.Errorf("Label = %s, want NEGATIVE", res.Label)
	}
	if res.Chunks != 3 || res.Scored != 2 {
		t.Errorf("unexpected result %+v", res)
	}
	if n := clf.calls.Load(); n != 2 {
		t.Errorf("classifier called %d times, want 2 (stops at first negative)", n)
	}
}

func TestAnalyzerAllPositive(t *testing.T) {
	clf := &scripted{results: []any{models.Positive}}
	res, err := NewAnalyzer(clf, WithChunkSize(2)).Classify(context.Background(), nWords(5))
	if err != nil || res.Label != models.Positive || res.Scored != 3 {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestAnalyzerSkipsFailedChunks(t *testing.T) {
	boom := errors.New("service down")
	clf := &scripted{results: []any{boom, models.Positive, boom}}
	res, err := NewAnalyzer(clf, WithChunkSize(1)).Classify(context.Background(), "a b c")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != models.Positive || res.Failed != 2 || res.Scored != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAnalyzerAllChunksFail(t *testing.T) {
	boom := errors.New("service down")
	clf := &scripted{results: []any{boom}}
	res, err := NewAnalyzer(clf, WithChunkSize(1)).Classify(context.Background(), "a b c")
	if !errors.Is(err, ErrAllChunksFailed) || !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if res.Label != "" {
		t.Errorf("article must not be labelled, got %s", res.Label)
	}
}

func TestAnalyzerEmptyText(t *testing.T) {
	a := NewAnalyzer(Lexicon{})
	if _, err := a.Classify(context.Background(), " \n\t"); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("err = %v, want ErrEmptyText", err)
	}
}

func TestAnalyzerRejectsInvalidLabel(t *testing.T) {
	clf := ClassifierFunc(func(context.Context, string) (Prediction, error) {
		return Prediction{Label: "NEUTRAL"}, nil
	})
	_, err := NewAnalyzer(clf).Classify(context.Background(), "text")
	if !errors.Is(err, ErrAllChunksFailed) || !errors.Is(err, ErrBadLabel) {
		t.Fatalf("err = %v", err)
	}
}

func TestAnalyzerChunkTimeout(t *testing.T) {
	clf := ClassifierFunc(func(ctx context.Context, text string) (Prediction, error) {
		if text == "slow" {
			<-ctx.Done()
			return Prediction{}, ctx.Err()
		}
		return Prediction{Label: models.Negative}, nil
	})
	a := NewAnalyzer(clf, WithChunkSize(1), WithChunkTimeout(20*time.Millisecond))
	res, err := a.Classify(context.Background(), "slow fast")
	if err != nil {
		t.Fatal(err)
	}
	if res.Label != models.Negative || res.Failed != 1 {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAnalyzerRateLimited(t *testing.T) {
	var calls atomic.Int32
	clf := ClassifierFunc(func(context.Context, string) (Prediction, error) {
		calls.Add(1)
		return Prediction{Label: models.Positive}, nil
	})
	a := NewAnalyzer(clf, WithChunkSize(1), WithRateLimiter(infra.NewRateLimiter(1, 50*time.Millisecond)))

	start := time.Now()
	res, err := a.Classify(context.Background(), nWords(3))
	if err != nil {
		t.Fatal(err)
	}
	if res.Scored != 3 || calls.Load() != 3 {
		t.Fatalf("unexpected result %+v, calls %d", res, calls.Load())
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three chunks at 20/s finished in %v", elapsed)
	}
}

func TestAnalyzerRateLimiterCancelled(t *testing.T) {
	rl := infra.NewRateLimiter(1, time.Hour)
	_ = rl.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	a := NewAnalyzer(Lexicon{}, WithRateLimiter(rl))
	_, err := a.Classify(ctx, "a terrible disaster")
	if !errors.Is(err, ErrAllChunksFailed) {
		t.Fatalf("err = %v, want ErrAllChunksFailed", err)
	}
}

func TestScoreText(t *testing.T) {
	tests := []struct {
		text string
		sign int
	}{
		{"The ruby was stolen in an armed robbery", -1},
		{"Museum celebrates award after the gem was restored", 1},
		{"The weather today is mild", 0},
		{"Smuggling ring broken up, several injured", -1},
		{"Shares hit a record high", 1},
		{"Hopeless and unsupported", 0},
		{"Hopeless collectors face another theft", -1},
	}
	for _, tt := range tests {
		score, conf := ScoreText(tt.text)
		switch {
		case tt.sign < 0 && score >= 0, tt.sign > 0 && score <= 0, tt.sign == 0 && score != 0:
			t.Errorf("ScoreText(%q) = %.2f, want sign %d", tt.text, score, tt.sign)
		}
		if conf <= 0 || conf > 0.85 {
			t.Errorf("confidence out of range: %.2f", conf)
		}
	}
}

func TestCountEntry(t *testing.T) {
	tests := []struct {
		text  string
		entry string
		want  int
	}{
		{"hope returns", "hope", 1},
		{"hopes and hoped", "hope", 2},
		{"a hopeless case", "hope", 0},
		{"unsupported claims", "support", 0},
		{"supportive fans", "support", 1},
		{"smugglers and smuggling", "smuggl", 2},
		{"a new record high, then another record-high", "record high", 2},
		{"record low, high hopes", "record high", 0},
	}
	for _, tt := range tests {
		if got := countEntry(words(tt.text), tt.entry); got != tt.want {
			t.Errorf("countEntry(%q, %q) = %d, want %d", tt.text, tt.entry, got, tt.want)
		}
	}
}

func TestLexiconClassifyChunk(t *testing.T) {
	p, err := Lexicon{}.ClassifyChunk(context.Background(), "Police arrest suspect after fraud investigation")
	if err != nil || p.Label != models.Negative {
		t.Errorf("got %+v, %v", p, err)
	}
	p, _ = Lexicon{}.ClassifyChunk(context.Background(), "no signal here")
	if p.Label != models.Positive {
		t.Errorf("neutral text should be POSITIVE, got %s", p.Label)
	}
}

func TestHuggingFace(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.SentimentLabel
	}{
		{"nested", `[[{"label":"NEGATIVE","score":0.98},{"label":"POSITIVE","score":0.02}]]`, models.Negative},
		{"flat", `[{"label":"POSITIVE","score":0.7},{"label":"NEGATIVE","score":0.3}]`, models.Positive},
		{"label ids", `[[{"label":"LABEL_1","score":0.2},{"label":"LABEL_0","score":0.8}]]`, models.Negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models/sst2" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if r.Header.Get("Authorization") != "Bearer hf_x" {
					t.Errorf("missing token")
				}
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			hf := NewHuggingFace(srv.URL+"/models/", "sst2", "hf_x", srv.Client())
			p, err := hf.ClassifyChunk(context.Background(), "text")
			if err != nil {
				t.Fatal(err)
			}
			if p.Label != tt.want {
				t.Errorf("Label = %s, want %s", p.Label, tt.want)
			}
		})
	}
}

func TestHuggingFaceErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"model loading", http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`},
		{"unexpected shape", http.StatusOK, `{"error":"bad input"}`},
		{"unknown label", http.StatusOK, `[{"label":"NEUTRAL","score":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			hf := NewHuggingFace(srv.URL, "", "", srv.Client())
			if _, err := hf.ClassifyChunk(context.Background(), "text"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type fakeProvider struct {
	reply string
	err   error
}

func (f fakeProvider) Name() string { return "fake" }
func (f fakeProvider) Ping(context.Context) error { return nil }
func (f fakeProvider) Chat(_ context.Context, msgs []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	if len(msgs) != 2 || msgs[0].Role != llm.RoleSystem {
		return nil, errors.New("unexpected messages")
	}
	return &llm.Response{Content: f.reply}, f.err
}

func TestLLMClassifier(t *testing.T) {
	tests := []struct {
		reply   string
		want    models.SentimentLabel
		wantErr bool
	}{
		{"NEGATIVE", models.Negative, false},
		{" positive.\n", models.Positive, false},
		{"-1", models.Negative, false},
		{"Neutral", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		p, err := NewLLM(fakeProvider{reply: tt.reply}).ClassifyChunk(context.Background(), "text")
		if (err != nil) != tt.wantErr {
			t.Errorf("reply %q: err = %v", tt.reply, err)
			continue
		}
		if p.Label != tt.want {
			t.Errorf("reply %q: Label = %s, want %s", tt.reply, p.Label, tt.want)
		}
	}

	_, err := NewLLM(fakeProvider{err: llm.ErrRateLimit}).ClassifyChunk(context.Background(), "x")
	if !errors.Is(err, llm.ErrRateLimit) {
		t.Errorf("provider error not wrapped: %v", err)
	}
}

func TestNewClassifier(t *testing.T) {
	tests := []struct {
		cfg     config.ClassifierConfig
		want    string
		wantErr bool
	}{
		{config.ClassifierConfig{Backend: "lexicon"}, "sentiment.Lexicon", false},
		{config.ClassifierConfig{Backend: "huggingface"}, "*sentiment.HuggingFace", false},
		{config.ClassifierConfig{Backend: "ollama"}, "*sentiment.LLM", false},
		{config.ClassifierConfig{Backend: "openai", OpenAI: config.OpenAIConfig{Key: "sk"}}, "*sentiment.LLM", false},
		{config.ClassifierConfig{Backend: "openai"}, "", true},
		{config.ClassifierConfig{Backend: "bogus"}, "", true},
	}
	for _, tt := range tests {
		clf, err := NewClassifier(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v", tt.cfg.Backend, err)
			continue
		}
		if got := fmt.Sprintf("%T", clf); !tt.wantErr && got != tt.want {
			t.Errorf("%s: type = %s, want %s", tt.cfg.Backend, got, tt.want)
		}
	}
}

func TestNewAnalyzerFromConfigPingsBackend(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantWarn bool
	}{
		{"reachable", http.StatusOK, false},
		{"down", http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pinged atomic.Bool
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/tags" {
					pinged.Store(true)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var buf bytes.Buffer
			log := slog.New(slog.NewTextHandler(&buf, nil))
			cfg := config.ClassifierConfig{
				Backend: BackendOllama,
				Timeout: time.Second,
				Ollama:  config.OllamaConfig{URL: srv.URL, Model: "m"},
			}
			if _, err := NewAnalyzerFromConfig(cfg, log); err != nil {
				t.Fatalf("NewAnalyzerFromConfig: %v", err)
			}
			if !pinged.Load() {
				t.Error("backend was not pinged")
			}
			if got := strings.Contains(buf.String(), "classifier backend unreachable"); got != tt.wantWarn {
				t.Errorf("warned = %v, want %v; log: %s", got, tt.wantWarn, buf.String())
			}
		})
	}
}
