package transform

import "time"

// DefaultDateLayouts are tried in order when coercing date columns. ISO
// first since it is the project's canonical interchange form.
var DefaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02.01.2006",
	"01/02/2006",
}

// ParseDate attempts each layout in order and returns the first success.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
