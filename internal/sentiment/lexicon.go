package sentiment

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/seenimoa/sentinews/pkg/models"
)

// ------------------------------------------------------------------
// Keyword-based sentiment scorer (offline, no model service needed).
// Used as the default backend and as a deterministic fallback when
// no hosted classifier is configured.
// ------------------------------------------------------------------

// positive / negative keyword dictionaries (lowercase). An entry matches a
// whole word or a word formed from it by one of the suffixes below, so stems
// like "smuggl" cover "smuggling" while "hope" does not match "hopeless".
var positiveWords = map[string]float64{
	"success": 0.5, "celebrat": 0.6, "award": 0.5, "victory": 0.5,
	"growth": 0.4, "improve": 0.4, "recover": 0.5, "rescue": 0.5,
	"breakthrough": 0.7, "record high": 0.6, "praise": 0.6, "hope": 0.3,
	"peace": 0.5, "agreement": 0.3, "support": 0.3, "benefit": 0.4,
	"boost": 0.5, "profit": 0.3, "thriv": 0.6, "welcome": 0.4,
	"honour": 0.5, "honor": 0.5, "returned": 0.4, "restored": 0.5,
}

var negativeWords = map[string]float64{
	"stolen": 0.7, "theft": 0.7, "steal": 0.6, "robbery": 0.7,
	"crime": 0.6, "fraud": 0.8, "scam": 0.8, "smuggl": 0.6,
	"killed": 0.9, "death": 0.7, "murder": 0.9,
	"attack": 0.7, "violence": 0.8, "warfare": 0.6, "conflict": 0.5,
	"crisis": 0.6, "disaster": 0.8, "collapse": 0.7, "crash": 0.7,
	"arrest": 0.5, "lawsuit": 0.5, "investigation": 0.4, "accused": 0.5,
	"loss": 0.4, "decline": 0.4, "slump": 0.6, "plunge": 0.6,
	"warning": 0.4, "concern": 0.3, "fail": 0.5, "scandal": 0.7,
	"protest": 0.4, "sanction": 0.5, "injur": 0.6, "victim": 0.6,
}

// inflections are the suffixes a dictionary entry may carry and still match.
var inflections = map[string]bool{
	"": true, "s": true, "es": true, "d": true, "ed": true, "e": true,
	"ing": true, "ings": true, "er": true, "ers": true, "y": true,
	"ies": true, "ied": true, "ion": true, "ions": true, "ure": true,
	"ures": true, "ment": true, "ments": true, "ful": true, "ly": true,
	"ive": true, "able": true,
}

// words lowercases text and splits it on anything that is not a letter or
// digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func matchWord(word, entry string) bool {
	return strings.HasPrefix(word, entry) && inflections[word[len(entry):]]
}

// countEntry counts occurrences of a (possibly multi-word) entry in tokens.
// Only the last word of a phrase may be inflected.
func countEntry(tokens []string, entry string) int {
	parts := strings.Fields(entry)
	n := 0
	for i := 0; i+len(parts) <= len(tokens); i++ {
		ok := true
		for j, part := range parts {
			if j < len(parts)-1 && tokens[i+j] != part || j == len(parts)-1 && !matchWord(tokens[i+j], part) {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}

// ScoreText returns a sentiment score for text.
// Score ranges from -1.0 (very negative) to +1.0 (very positive).
func ScoreText(text string) (score float64, confidence float64) {
	tokens := words(text)

	posScore := 0.0
	negScore := 0.0
	matches := 0

	for word, weight := range positiveWords {
		if n := countEntry(tokens, word); n > 0 {
			posScore += weight * float64(n)
			matches += n
		}
	}

	for word, weight := range negativeWords {
		if n := countEntry(tokens, word); n > 0 {
			negScore += weight * float64(n)
			matches += n
		}
	}

	if matches == 0 {
		return 0, 0.1 // no signal
	}

	// Net score normalized to -1..+1.
	score = (posScore - negScore) / (posScore + negScore)

	// Confidence based on number of keyword matches.
	confidence = math.Min(float64(matches)*0.15+0.2, 0.85)

	return score, confidence
}

// Lexicon is a ChunkClassifier backed by ScoreText. Chunks without a net
// negative score are POSITIVE.
type Lexicon struct{}

func (Lexicon) ClassifyChunk(ctx context.Context, text string) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	score, confidence := ScoreText(text)
	if score < 0 {
		return Prediction{Label: models.Negative, Score: confidence}, nil
	}
	return Prediction{Label: models.Positive, Score: confidence}, nil
}
