package twilio

import (
	"fmt"
	"time"
)

// DateTimeLayout is the layout Twilio uses for every date field,
// e.g. "Sat, 11 Feb 2023 02:25:05 +0000".
const DateTimeLayout = time.RFC1123Z

// ParseDateTime parses a provider date string. The returned error wraps
// *time.ParseError.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse provider datetime %q: %w", s, err)
	}
	return t, nil
}

func formatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}
