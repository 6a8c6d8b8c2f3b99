// Package langid identifies the language of short text fragments such as
// headlines and search-result descriptions.
package langid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// ErrUndetermined is returned when a fragment is too short or ambiguous to
// classify.
var ErrUndetermined = errors.New("language undetermined")

// DefaultCandidates is the language set used when none is configured.
// Loading every lingua model costs around a gigabyte, so the set is bounded.
var DefaultCandidates = []string{"en", "fr", "de", "es", "it", "pt", "nl"}

// Identifier wraps a lingua detector built once for a fixed language set.
// The detector is safe for concurrent use.
type Identifier struct {
	minConfidence float64
	detector      lingua.LanguageDetector
}

// New creates an Identifier. Detections whose confidence is below
// minConfidence are reported as ErrUndetermined. candidates restricts
// detection to the given ISO 639-1 codes (DefaultCandidates when empty);
// unknown codes are rejected.
func New(minConfidence float64, candidates []string) (*Identifier, error) {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}

	langs := make([]lingua.Language, 0, len(candidates))
	seen := make(map[lingua.Language]bool, len(candidates))
	for _, code := range candidates {
		lang, ok := lookup(code)
		if !ok {
			return nil, fmt.Errorf("unknown language code %q", code)
		}
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}

	// lingua needs at least two languages to compare.
	if len(langs) < 2 {
		extra := lingua.English
		if langs[0] == lingua.English {
			extra = lingua.French
		}
		langs = append(langs, extra)
	}

	return &Identifier{
		minConfidence: minConfidence,
		detector:      lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
	}, nil
}

// Identify returns the ISO 639-1 code of text.
func (id *Identifier) Identify(_ context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty text", ErrUndetermined)
	}

	lang, ok := id.detector.DetectLanguageOf(text)
	if !ok {
		return "", fmt.Errorf("%w: no reliable detection", ErrUndetermined)
	}
	code := isoCode(lang)
	if id.minConfidence > 0 {
		if conf := id.detector.ComputeLanguageConfidence(text, lang); conf < id.minConfidence {
			return "", fmt.Errorf("%w: %s at confidence %.2f", ErrUndetermined, code, conf)
		}
	}
	return code, nil
}

func isoCode(lang lingua.Language) string {
	return strings.ToLower(lang.IsoCode639_1().String())
}

func lookup(code string) (lingua.Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, lang := range lingua.AllLanguages() {
		if isoCode(lang) == code {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
