package utils

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"20190101", "2019-01-01", " 2019-01-01 "} {
		got, err := ParseDate(in)
		if err != nil {
			t.Fatalf("ParseDate(%q) error: %v", in, err)
		}
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDateInvalid(t *testing.T) {
	for _, in := range []string{"", "2019/01/01", "20191301", "yesterday"} {
		if _, err := ParseDate(in); err == nil {
			t.Errorf("ParseDate(%q): expected error", in)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange("20190101", "2019-02-01")
	if err != nil {
		t.Fatalf("ParseDateRange error: %v", err)
	}
	from, to := r.SearchWindow()
	if from != "20190101000000" {
		t.Errorf("from = %q", from)
	}
	if to != "20190201235959" {
		t.Errorf("to = %q", to)
	}
	if r.Days() != 32 {
		t.Errorf("Days() = %d, want 32", r.Days())
	}
	if r.String() != "2019-01-01..2019-02-01" {
		t.Errorf("String() = %q", r.String())
	}
}

func TestParseDateRangeSameDay(t *testing.T) {
	r, err := ParseDateRange("20190101", "20190101")
	if err != nil {
		t.Fatalf("ParseDateRange error: %v", err)
	}
	if r.Days() != 1 {
		t.Errorf("Days() = %d, want 1", r.Days())
	}
}

func TestParseDateRangeReversed(t *testing.T) {
	if _, err := ParseDateRange("20190201", "20190101"); err == nil {
		t.Fatal("expected error for start after end")
	}
}

func TestNewDateRangeTruncatesTime(t *testing.T) {
	s := time.Date(2024, 5, 1, 18, 30, 0, 0, time.UTC)
	e := time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)
	r, err := NewDateRange(s, e)
	if err != nil {
		t.Fatalf("same calendar day should be valid: %v", err)
	}
	if r.Start.Hour() != 0 || r.End.Hour() != 0 {
		t.Errorf("expected midnight, got %v / %v", r.Start, r.End)
	}
}
