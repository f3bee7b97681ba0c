package logger

import (
	"regexp"
	"strings"
	"time"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Status maps error to a unified status string for logs.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Took returns rounded duration since start for compact logging.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds duration to the nearest millisecond for consistent logging.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// Redact hides Telegram bot tokens embedded in API URLs within error text.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

// RedactString hides Telegram bot tokens and bare webhook secrets in s.
func RedactString(s string) string {
	s = tokenRe.ReplaceAllString(s, "bot<redacted>")
	if i := strings.Index(s, "/webhook/"); i >= 0 {
		s = s[:i] + "/webhook/<redacted>"
	}
	return s
}

// SummarizeStrings joins up to limit elements and reports whether truncation happened.
func SummarizeStrings(values []string, limit int) (string, bool) {
	if limit <= 0 {
		return "", len(values) > 0
	}
	if len(values) <= limit {
		return strings.Join(values, ", "), false
	}
	return strings.Join(values[:limit], ", "), true
}
