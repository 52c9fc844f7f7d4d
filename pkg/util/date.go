package util

import (
	"strconv"
	"strings"
	"time"
)

// layouts seen in upstream news payloads and scraped markup.
var layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime tries the known layouts, then unix seconds. The result is UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimePtr is ParseTime for optional fields: unparseable input yields nil.
func ParseTimePtr(s string) *time.Time {
	t, ok := ParseTime(s)
	if !ok {
		return nil
	}
	return &t
}
