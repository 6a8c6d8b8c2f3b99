package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/seenimoa/sentinews/internal/llm"
	"github.com/seenimoa/sentinews/pkg/models"
)

const classifyPrompt = `Classify the sentiment of the news text as:
POSITIVE
NEGATIVE

Answer with exactly one word.`

// LLM classifies chunks by prompting a chat model.
type LLM struct {
	provider llm.Provider
	opts     *llm.ChatOptions
}

// NewLLM creates a classifier over provider.
func NewLLM(provider llm.Provider) *LLM {
	return &LLM{provider: provider, opts: &llm.ChatOptions{MaxTokens: 5}}
}

// Ping checks that the chat backend is reachable.
func (c *LLM) Ping(ctx context.Context) error {
	if err := c.provider.Ping(ctx); err != nil {
		return fmt.Errorf("%s: %w", c.provider.Name(), err)
	}
	return nil
}

func (c *LLM) ClassifyChunk(ctx context.Context, text string) (Prediction, error) {
	resp, err := c.provider.Chat(ctx, []llm.Message{
		llm.SystemMessage(classifyPrompt),
		llm.UserMessage(text),
	}, c.opts)
	if err != nil {
		return Prediction{}, fmt.Errorf("%s: %w", c.provider.Name(), err)
	}

	answer := strings.Fields(resp.Content)
	if len(answer) == 0 {
		return Prediction{}, fmt.Errorf("%s: %w: empty reply", c.provider.Name(), ErrBadLabel)
	}
	label, err := models.ParseSentimentLabel(answer[0])
	if err != nil {
		return Prediction{}, fmt.Errorf("%s: %w: %w", c.provider.Name(), ErrBadLabel, err)
	}
	return Prediction{Label: label, Score: 1}, nil
}
