// Package dates canonicalizes the heterogeneous date strings the remote
// service emits. Stored enrollment dates come back from list/detail reads in
// RFC 1123 form ("Mon, 15 Jan 2024 00:00:00 GMT") while the write API expects
// calendar dates, so every date passes through Normalize on the way into an
// edit session and again before submission.
package dates

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
)

var canonical = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Layouts tried for free-form parsing, most common first.
var layouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"January 2, 2006",
}

// Normalize converts a date string to canonical YYYY-MM-DD form. It is total
// and idempotent: unparseable input yields "" with a non-fatal diagnostic, and
// canonical input passes through unchanged.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	if canonical.MatchString(trimmed) {
		return trimmed
	}

	// ISO datetime: the part before 'T' is already the date.
	if idx := strings.IndexByte(trimmed, 'T'); idx >= 0 {
		if datePart := trimmed[:idx]; canonical.MatchString(datePart) {
			return datePart
		}
	}

	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return parsed.Format("2006-01-02")
		}
	}

	slog.Warn("failed to parse date", slog.String("input", trimmed))
	return ""
}
