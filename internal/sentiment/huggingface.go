package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/seenimoa/sentinews/internal/infra"
	"github.com/seenimoa/sentinews/pkg/models"
)

// HuggingFace classifies chunks with a text-classification model served by
// the Hugging Face Inference API (or a compatible endpoint).
type HuggingFace struct {
	endpoint string
	token    string
	client   *http.Client
}

// NewHuggingFace creates a classifier for model at baseURL. An empty model
// means baseURL already addresses the model.
func NewHuggingFace(baseURL, model, token string, client *http.Client) *HuggingFace {
	endpoint := strings.TrimRight(baseURL, "/")
	if model != "" {
		endpoint += "/" + strings.TrimLeft(model, "/")
	}
	return &HuggingFace{endpoint: endpoint, token: token, client: client}
}

type hfScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (h *HuggingFace) ClassifyChunk(ctx context.Context, text string) (Prediction, error) {
	headers := map[string]string{}
	if h.token != "" {
		headers["Authorization"] = "Bearer " + h.token
	}

	body, err := infra.PostJSON(ctx, h.client, h.endpoint, headers, map[string]string{"inputs": text})
	if err != nil {
		return Prediction{}, fmt.Errorf("huggingface: %w", err)
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return Prediction{}, fmt.Errorf("huggingface: read response: %w", err)
	}

	scores, err := decodeHFScores(raw)
	if err != nil {
		return Prediction{}, fmt.Errorf("huggingface: %w", err)
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.Score > best.Score {
			best = s
		}
	}
	label, err := models.ParseSentimentLabel(best.Label)
	if err != nil {
		return Prediction{}, fmt.Errorf("huggingface: %w: %w", ErrBadLabel, err)
	}
	return Prediction{Label: label, Score: best.Score}, nil
}

// decodeHFScores accepts both [[{label,score}...]] (pipeline output for a
// single input) and the flat [{label,score}...] form.
func decodeHFScores(raw []byte) ([]hfScore, error) {
	var nested [][]hfScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}
	var flat []hfScore
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	return nil, fmt.Errorf("unexpected response: %s", truncate(raw, 200))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
