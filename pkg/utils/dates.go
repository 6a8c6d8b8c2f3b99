package utils

import (
	"fmt"
	"strings"
	"time"
)

// Accepted calendar date layouts: the compact form used on the command line
// and by the search service, and the ISO form used by HTML date inputs.
const (
	LayoutCompact = "20060102"
	LayoutISO     = "2006-01-02"
)

// ParseDate parses a calendar date in "20060102" or "2006-01-02" form.
// The result is midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := LayoutISO
	if len(s) == len(LayoutCompact) && !strings.Contains(s, "-") {
		layout = LayoutCompact
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYYMMDD or YYYY-MM-DD)", s)
	}
	return t, nil
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses and validates start <= end.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, fmt.Errorf("start date: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, fmt.Errorf("end date: %w", err)
	}
	return NewDateRange(s, e)
}

// NewDateRange truncates both ends to calendar days and validates ordering.
func NewDateRange(start, end time.Time) (DateRange, error) {
	s := truncateDay(start)
	e := truncateDay(end)
	if s.After(e) {
		return DateRange{}, fmt.Errorf("start date %s is after end date %s", FormatDate(s), FormatDate(e))
	}
	return DateRange{Start: s, End: e}, nil
}

// Days returns the number of calendar days covered, inclusive.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// SearchWindow formats the range as the search service's inclusive
// midnight-to-midnight datetimes: YYYYMMDD000000 and YYYYMMDD235959.
func (r DateRange) SearchWindow() (from, to string) {
	return r.Start.Format(LayoutCompact) + "000000", r.End.Format(LayoutCompact) + "235959"
}

// String renders the range as "2006-01-02..2006-01-02".
func (r DateRange) String() string {
	return FormatDate(r.Start) + ".." + FormatDate(r.End)
}

// FormatDate formats t as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format(LayoutISO)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
