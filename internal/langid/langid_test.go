package langid

import (
	"context"
	"errors"
	"testing"
)

func TestIdentify(t *testing.T) {
	id, err := New(0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english sentence", "The famous ruby was stolen from the museum late on Tuesday night, police said.", "en"},
		{"french sentence", "Le célèbre rubis a été volé au musée tard mardi soir, selon la police.", "fr"},
		{"german sentence", "Der berühmte Rubin wurde am späten Dienstagabend aus dem Museum gestohlen, teilte die Polizei mit.", "de"},
		{"spanish sentence", "El famoso rubí fue robado del museo el martes por la noche, según la policía.", "es"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := id.Identify(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("Identify error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Identify = %q, want %q", got, tt.want)
			}
		})
	}
}

// Headlines are the bulk of what the relevance filter sees.
func TestIdentifyHeadlines(t *testing.T) {
	id, err := New(0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	headlines := []string{
		"Rangoon Ruby stolen from museum",
		"Police arrest suspects in gem heist",
		"Ruby prices soar in Myanmar",
		"Museum heist: Rangoon ruby missing",
		"Myanmar gem trade under scrutiny",
		"Thieves make off with priceless jewel",
		"Why the ruby market is booming again",
	}
	for _, text := range headlines {
		t.Run(text, func(t *testing.T) {
			got, err := id.Identify(context.Background(), text)
			if err != nil {
				t.Fatalf("Identify error: %v", err)
			}
			if got != "en" {
				t.Errorf("Identify = %q, want en", got)
			}
		})
	}
}

func TestIdentifyUndetermined(t *testing.T) {
	id, _ := New(0, nil)
	for _, text := range []string{"", "   ", "12345 !!! ---"} {
		if _, err := id.Identify(context.Background(), text); !errors.Is(err, ErrUndetermined) {
			t.Errorf("Identify(%q) error = %v, want ErrUndetermined", text, err)
		}
	}
}

func TestIdentifyMinConfidence(t *testing.T) {
	id, _ := New(1.01, nil)
	_, err := id.Identify(context.Background(), "The famous ruby was stolen from the museum late on Tuesday night.")
	if !errors.Is(err, ErrUndetermined) {
		t.Errorf("error = %v, want ErrUndetermined", err)
	}
}

func TestCandidates(t *testing.T) {
	id, err := New(0, []string{"en", "FR"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := id.Identify(context.Background(), "Le célèbre rubis a été volé au musée tard mardi soir, selon la police.")
	if err != nil || got != "fr" {
		t.Errorf("Identify = %q, %v; want fr", got, err)
	}

	if _, err := New(0, []string{"xx"}); err == nil {
		t.Error("expected error for unknown code")
	}
}

func TestSingleCandidate(t *testing.T) {
	id, err := New(0, []string{"en"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := id.Identify(context.Background(), "Police arrest suspects in gem heist")
	if err != nil || got != "en" {
		t.Errorf("Identify = %q, %v; want en", got, err)
	}
}
