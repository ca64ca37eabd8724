package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseNow = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

func TestParseTime(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		rest  string
	}{
		{"in 5 minutes drink water", parseNow.Add(5 * time.Minute), "drink water"},
		{"in 1 minute to stretch", parseNow.Add(time.Minute), "stretch"},
		{"in 2 hours call mom", parseNow.Add(2 * time.Hour), "call mom"},
		{"in 3 days", parseNow.Add(72 * time.Hour), ""},
		{"in 1 week review", parseNow.Add(7 * 24 * time.Hour), "review"},
		{"10m tea", parseNow.Add(10 * time.Minute), "tea"},
		{"2h nap", parseNow.Add(2 * time.Hour), "nap"},
		{"at 3pm meeting", time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC), "meeting"},
		{"at 3:30pm meeting", time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC), "meeting"},
		{"at 15:30 meeting", time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC), "meeting"},
		{"at 9am standup", time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC), "standup"},
		{"at 12am midnight", time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), "midnight"},
		{"tomorrow at 9am standup", time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC), "standup"},
		{"Tomorrow groceries", time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC), "groceries"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, rest, err := ParseTime(tt.input, parseNow)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestParseTime_Errors(t *testing.T) {
	for _, input := range []string{"", "someday", "in five minutes", "in 0 hours x", "at 25:00", "at 13pm", "at 7 x", "in 3 fortnights",
		"in 9999999999 weeks to x", "99999999999999999999m x", "in 5300 weeks x"} {
		_, _, err := ParseTime(input, parseNow)
		assert.ErrorIs(t, err, ErrBadTime, input)
	}
}

func TestParseRecurrence(t *testing.T) {
	for _, ok := range []string{"", "daily", "Weekly", "hourly", "every_15_minutes", "every_2_hours", "every_3_days"} {
		_, err := ParseRecurrence(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"monthly", "every_0_days", "every_2_weeks",
		"every_281474976710656_days", "every_99999999999999999999_minutes", "every_3651_days"} {
		_, err := ParseRecurrence(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextOccurrence(t *testing.T) {
	prev := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	next, ok := NextOccurrence(prev, "daily", prev.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, prev.Add(24*time.Hour), next)

	// A loop that was down for a while skips missed occurrences.
	next, ok = NextOccurrence(prev, "hourly", prev.Add(5*time.Hour+time.Minute))
	require.True(t, ok)
	assert.Equal(t, prev.Add(6*time.Hour), next)

	next, ok = NextOccurrence(prev, "every_30_minutes", prev.Add(30*time.Minute))
	require.True(t, ok)
	assert.Equal(t, prev.Add(time.Hour), next)

	_, ok = NextOccurrence(prev, "", prev)
	assert.False(t, ok)
}

func TestParseTime_UpToMaxSpan(t *testing.T) {
	at, rest, err := ParseTime("in 520 weeks x", parseNow)
	require.NoError(t, err)
	assert.True(t, at.After(parseNow))
	assert.Equal(t, "x", rest)

	_, err = ParseRecurrence("every_3650_days")
	assert.NoError(t, err)
}

func TestNextOccurrence_OversizedPeriod(t *testing.T) {
	prev := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	_, ok := NextOccurrence(prev, "every_281474976710656_days", prev.Add(time.Minute))
	assert.False(t, ok)
}
