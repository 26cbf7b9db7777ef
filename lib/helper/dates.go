package helper

import (
	"strings"
	"time"
)

// dateLayouts are the formats inventory exports actually contain, tried in
// order.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"02.01.2006",
	"Jan 2, 2006",
}

// ParseDate parses a date string from a source row. The boolean result is
// false when the value is empty or matches no known layout; callers treat
// that as "no date", not as an error.
func ParseDate(value string) (time.Time, bool) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
