package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrBadTime is returned when no time expression can be read.
var ErrBadTime = errors.New("could not understand the time")

var (
	compactRe = regexp.MustCompile(`^(\d+)(m|min|h|hr|d|w)$`)
	clockRe   = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)?$`)
)

func unitDuration(unit string) (time.Duration, bool) {
	switch strings.TrimSuffix(unit, "s") {
	case "m", "min", "minute":
		return time.Minute, true
	case "h", "hr", "hour":
		return time.Hour, true
	case "d", "day":
		return 24 * time.Hour, true
	case "w", "week":
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

// MaxSpan bounds any offset or recurrence period a user can ask for.
const MaxSpan = 10 * 365 * 24 * time.Hour

// span returns n units, or false when n is not positive or exceeds MaxSpan.
func span(n int, unit time.Duration) (time.Duration, bool) {
	if n <= 0 || unit <= 0 || int64(n) > int64(MaxSpan/unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

// parseClock reads "3pm", "3:30pm" or "15:30".
func parseClock(tok string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(tok)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "am":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, 0, false
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if m[2] == "" {
			// A bare number is too ambiguous to be a clock time.
			return 0, 0, false
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// ParseTime reads a leading time expression from input and returns the
// resolved time plus the rest of the text. Supported forms:
//
//	in 5 minutes / in 2 hours / in 1 day / in 3 weeks
//	10m / 2h / 1d / 1w
//	at 3pm / at 3:30pm / at 15:30
//	tomorrow / tomorrow at 9am
//
// An "at" time already past today moves to tomorrow.
func ParseTime(input string, now time.Time) (time.Time, string, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return time.Time{}, "", ErrBadTime
	}
	lower := make([]string, len(fields))
	for i, f := range fields {
		lower[i] = strings.ToLower(f)
	}

	var at time.Time
	used := 0

	switch {
	case lower[0] == "in" && len(lower) >= 3:
		n, err := strconv.Atoi(lower[1])
		unit, ok := unitDuration(lower[2])
		var d time.Duration
		if ok && err == nil {
			d, ok = span(n, unit)
		}
		if err != nil || !ok {
			return time.Time{}, "", fmt.Errorf("%w: %q", ErrBadTime, strings.Join(fields[:3], " "))
		}
		at = now.Add(d)
		used = 3

	case compactRe.MatchString(lower[0]):
		m := compactRe.FindStringSubmatch(lower[0])
		n, err := strconv.Atoi(m[1])
		unit, _ := unitDuration(m[2])
		d, ok := span(n, unit)
		if err != nil || !ok {
			return time.Time{}, "", fmt.Errorf("%w: %q", ErrBadTime, fields[0])
		}
		at = now.Add(d)
		used = 1

	case lower[0] == "tomorrow":
		day := now.AddDate(0, 0, 1)
		hour, minute := 9, 0
		used = 1
		if len(lower) >= 3 && lower[1] == "at" {
			h, m, ok := parseClock(lower[2])
			if !ok {
				return time.Time{}, "", fmt.Errorf("%w: %q", ErrBadTime, fields[2])
			}
			hour, minute = h, m
			used = 3
		}
		at = time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())

	case lower[0] == "at" && len(lower) >= 2:
		h, m, ok := parseClock(lower[1])
		if !ok {
			return time.Time{}, "", fmt.Errorf("%w: %q", ErrBadTime, fields[1])
		}
		at = time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		used = 2

	default:
		return time.Time{}, "", ErrBadTime
	}

	rest := fields[used:]
	if len(rest) > 0 && strings.EqualFold(rest[0], "to") {
		rest = rest[1:]
	}
	return at, strings.Join(rest, " "), nil
}

var everyRe = regexp.MustCompile(`^every_(\d+)_(minutes|hours|days)$`)

// ParseRecurrence validates a recurrence pattern. The empty string means one-shot.
func ParseRecurrence(pattern string) (string, error) {
	p := strings.ToLower(strings.TrimSpace(pattern))
	switch p {
	case "", "hourly", "daily", "weekly":
		return p, nil
	}
	if _, ok := recurrenceInterval(p); ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown recurrence %q", pattern)
}

func recurrenceInterval(pattern string) (time.Duration, bool) {
	switch pattern {
	case "hourly":
		return time.Hour, true
	case "daily":
		return 24 * time.Hour, true
	case "weekly":
		return 7 * 24 * time.Hour, true
	}
	m := everyRe.FindStringSubmatch(pattern)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	unit, _ := unitDuration(m[2])
	return span(n, unit)
}

// NextOccurrence returns the first occurrence of a recurring reminder
// strictly after now, stepping from the previous scheduled time.
func NextOccurrence(prev time.Time, pattern string, now time.Time) (time.Time, bool) {
	step, ok := recurrenceInterval(pattern)
	if !ok || step <= 0 {
		return time.Time{}, false
	}
	next := prev.Add(step)
	if !next.After(now) {
		missed := now.Sub(next)/step + 1
		next = next.Add(missed * step)
	}
	return next, true
}
