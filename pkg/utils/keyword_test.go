package utils

import "testing"

func TestNormalizeKeyword(t *testing.T) {
	tests := map[string]string{
		"  rangoon   ruby ": "rangoon ruby",
		"ruby":              "ruby",
		"\tburma\nruby":     "burma ruby",
		"   ":               "",
	}
	for in, want := range tests {
		if got := NormalizeKeyword(in); got != want {
			t.Errorf("NormalizeKeyword(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("The Rangoon Ruby heist", "rangoon ruby") {
		t.Error("expected case-insensitive match")
	}
	if ContainsFold("Rangoon", "rangoon ruby") {
		t.Error("expected no match for longer phrase")
	}
	if ContainsFold("anything", "") {
		t.Error("empty keyword must never match")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q", got)
	}
}
