package models

import (
	"fmt"
	"time"
)

// TimestampLayout is the layout of CMS publication timestamps.
const TimestampLayout = "2006-01-02T15:04:05-0700"

var monthAbbrev = [...]string{
	"jan", "fev", "mar", "abr", "mai", "jun",
	"jul", "ago", "set", "out", "nov", "dez",
}

// ParseTimestamp parses a CMS timestamp. Empty input yields nil.
func ParseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		// Some endpoints emit RFC 3339 offsets with a colon.
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", s, err)
		}
	}
	return &t, nil
}

// FormatDate renders t as "dd MMM yyyy" with Portuguese month abbreviations,
// e.g. "25 mar 2021". A nil time renders empty.
func FormatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	lt := t.In(loc)
	return fmt.Sprintf("%02d %s %d", lt.Day(), monthAbbrev[lt.Month()-1], lt.Year())
}

// FormatClock renders t as "HH:mm".
func FormatClock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

// FormatSummaries returns copies of posts with FormattedDate filled in. The
// listing's first page and every loaded page go through here.
func FormatSummaries(posts []PostSummary, loc *time.Location) []PostSummary {
	out := make([]PostSummary, len(posts))
	for i, p := range posts {
		p.FormattedDate = FormatDate(p.FirstPublicationDate, loc)
		out[i] = p
	}
	return out
}
