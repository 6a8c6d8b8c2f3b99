package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

// ════════════════════════════════════════════════════════════════════
// provider.go
// ════════════════════════════════════════════════════════════════════

func TestMessageConstructors(t *testing.T) {
	sys := SystemMessage("Classify sentiment.")
	if sys.Role != RoleSystem || sys.Content != "Classify sentiment." {
		t.Fatalf("SystemMessage: got %+v", sys)
	}
	user := UserMessage("text")
	if user.Role != RoleUser || user.Content != "text" {
		t.Fatalf("UserMessage: got %+v", user)
	}
}

func TestResponseString(t *testing.T) {
	r := &Response{
		Provider: "openai", Model: "gpt-4o-mini",
		Content: "NEGATIVE",
		Usage:   Usage{TotalTokens: 50},
		Latency: 100 * time.Millisecond,
	}
	s := r.String()
	if !strings.Contains(s, "openai/gpt-4o-mini") || !strings.Contains(s, "50 tokens") {
		t.Fatalf("unexpected String(): %s", s)
	}

	r.Content = strings.Repeat("x", 200)
	if s := r.String(); !strings.Contains(s, "...") {
		t.Fatalf("expected truncation: %s", s)
	}

	// 99 ASCII bytes then multi-byte runes: a byte cut at 100 would split "é".
	r.Content = strings.Repeat("x", 99) + strings.Repeat("é", 10)
	s = r.String()
	if !utf8.ValidString(s) {
		t.Fatalf("truncation split a rune: %q", s)
	}
	if !strings.Contains(s, strings.Repeat("x", 99)+"é...") {
		t.Errorf("expected 100-rune prefix: %s", s)
	}
}

// ════════════════════════════════════════════════════════════════════
// openai.go
// ════════════════════════════════════════════════════════════════════

func TestOpenAIProviderNew(t *testing.T) {
	if _, err := NewOpenAIProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	p, err := NewOpenAIProvider("sk-test", WithOpenAIModel("gpt-4o"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" || p.model != "gpt-4o" {
		t.Fatalf("unexpected provider: %+v", p)
	}
}

func TestOpenAIChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("missing auth header")
		}

		var req openAIChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gpt-4o-mini" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Errorf("expected 2 messages, got %d", len(req.Messages))
		}
		if req.Temperature != nil {
			t.Errorf("temperature should be omitted when zero")
		}

		json.NewEncoder(w).Encode(openAIChatResponse{
			ID: "chatcmpl-123",
			Choices: []openAIChoice{{
				Message:      Message{Role: RoleAssistant, Content: "NEGATIVE"},
				FinishReason: "stop",
			}},
			Usage: Usage{PromptTokens: 20, CompletionTokens: 1, TotalTokens: 21},
			Model: "gpt-4o-mini",
		})
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	resp, err := p.Chat(context.Background(),
		[]Message{SystemMessage("Classify."), UserMessage("The ruby was stolen.")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "NEGATIVE" || resp.Provider != "openai" || resp.Usage.TotalTokens != 21 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOpenAIChatOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req openAIChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "custom" || req.MaxTokens == nil || *req.MaxTokens != 5 {
			t.Errorf("options not applied: %+v", req)
		}
		json.NewEncoder(w).Encode(openAIChatResponse{Choices: []openAIChoice{{Message: Message{Content: "ok"}}}})
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	if _, err := p.Chat(context.Background(), []Message{UserMessage("x")},
		&ChatOptions{Model: "custom", MaxTokens: 5}); err != nil {
		t.Fatal(err)
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	if _, err := p.Chat(context.Background(), []Message{UserMessage("x")}, nil); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIErrorHandling(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       error
	}{
		{"unauthorized", 401, `{"error":{"message":"Invalid key","code":"invalid_api_key"}}`, ErrNoAPIKey},
		{"rate_limit", 429, `{"error":{"message":"Rate limit exceeded"}}`, ErrRateLimit},
		{"context_length", 400, `{"error":{"message":"Too many tokens","code":"context_length_exceeded"}}`, ErrContextLength},
		{"model_not_found", 400, `{"error":{"message":"Model not found","code":"model_not_found"}}`, ErrInvalidModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
			_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got: %v", tt.want, err)
			}
		})
	}
}

func TestOpenAIPlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer server.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(server.URL))
	_, err := p.Chat(context.Background(), []Message{UserMessage("test")}, nil)
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenAIPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" && r.Header.Get("Authorization") == "Bearer sk-good" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	good, _ := NewOpenAIProvider("sk-good", WithOpenAIBaseURL(server.URL))
	if err := good.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	bad, _ := NewOpenAIProvider("sk-bad", WithOpenAIBaseURL(server.URL))
	if err := bad.Ping(context.Background()); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}

// ════════════════════════════════════════════════════════════════════
// ollama.go
// ════════════════════════════════════════════════════════════════════

func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req ollamaChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Stream {
			t.Error("stream must be false")
		}
		if req.Model != "llama3.1:8b" {
			t.Errorf("unexpected model: %s", req.Model)
		}
		if req.Options == nil || req.Options.Temperature != 0.2 {
			t.Errorf("options not forwarded: %+v", req.Options)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Model:           "llama3.1:8b",
			Message:         Message{Role: RoleAssistant, Content: "POSITIVE"},
			Done:            true,
			PromptEvalCount: 12,
			EvalCount:       2,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL+"/", WithOllamaModel("llama3.1:8b"))
	resp, err := p.Chat(context.Background(), []Message{UserMessage("Great news")}, &ChatOptions{Temperature: 0.2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "POSITIVE" || resp.Usage.TotalTokens != 14 || resp.Provider != "ollama" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOllamaHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model not found"}`))
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL)
	if _, err := p.Chat(context.Background(), []Message{UserMessage("x")}, nil); !errors.Is(err, ErrInvalidModel) {
		t.Fatalf("expected ErrInvalidModel, got %v", err)
	}
}

func TestOllamaPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	if err := NewOllamaProvider(server.URL).Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	down := NewOllamaProvider("http://127.0.0.1:1")
	if err := down.Ping(context.Background()); !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
}

func TestOllamaCustomHTTPClient(t *testing.T) {
	c := &http.Client{Timeout: time.Second}
	p := NewOllamaProvider("", WithOllamaHTTPClient(c))
	if p.client != c || p.baseURL != "http://localhost:11434" {
		t.Fatalf("options not applied: %+v", p)
	}
}
