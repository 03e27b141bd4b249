// Package dates provides canonical date/datetime parsing and day arithmetic.
//
// Script values of kind DATE are absolute instants kept in UTC. This package
// is the single place that decides which textual forms coerce to a DATE and
// how whole-day differences are computed, so value coercion and the date
// built-ins agree.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

const dateLayout = "2006-01-02"

// IsValidDate checks if a string is a valid YYYY-MM-DD date.
func IsValidDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !IsValidDate(s) {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return time.Parse(dateLayout, s)
}

// IsValidDatetime checks if a string is a valid datetime.
//
// Accepted formats:
// - RFC3339 (e.g. 2025-01-01T10:30:00Z, 2025-06-15T14:00:00+05:00)
// - YYYY-MM-DDTHH:MM
// - YYYY-MM-DDTHH:MM:SS
// - YYYY-MM-DD HH:MM:SS
func IsValidDatetime(s string) bool {
	_, err := ParseDatetime(s)
	return err == nil
}

// ParseDatetime parses a datetime in one of the accepted formats.
// Values without an offset are interpreted as UTC.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid datetime: empty")
	}

	formats := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime: %q", s)
}

// Parse accepts either a plain date or any datetime form.
func Parse(s string) (time.Time, error) {
	if t, err := ParseDate(s); err == nil {
		return t, nil
	}
	if t, err := ParseDatetime(s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date: %q", strings.TrimSpace(s))
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsMidnight reports whether t has no time-of-day component in UTC.
func IsMidnight(t time.Time) bool {
	return t.UTC().Equal(StartOfDay(t))
}

// AddDays shifts t by a whole number of calendar days.
func AddDays(t time.Time, days int) time.Time {
	return t.UTC().AddDate(0, 0, days)
}

// DaysBetween returns the whole days from b to a (a - b), both normalized to midnight.
func DaysBetween(a, b time.Time) int64 {
	diff := StartOfDay(a).Sub(StartOfDay(b))
	return int64(diff / (24 * time.Hour))
}

// Format renders a date as YYYY-MM-DD at midnight and RFC3339 otherwise.
func Format(t time.Time) string {
	if IsMidnight(t) {
		return t.UTC().Format(dateLayout)
	}
	return t.UTC().Format(time.RFC3339Nano)
}
