package games

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(n int) func(int) int {
	return func(int) int { return n }
}

func TestGuess(t *testing.T) {
	m := NewManager(Config{})
	m.intn = fixed(41) // secret 42

	assert.Equal(t, 100, m.StartGuess("u1", 0))

	res, attempts, err := m.Guess("u1", 10)
	require.NoError(t, err)
	assert.Equal(t, GuessHigher, res)
	assert.Equal(t, 1, attempts)

	res, _, err = m.Guess("u1", 90)
	require.NoError(t, err)
	assert.Equal(t, GuessLower, res)

	_, _, err = m.Guess("u1", 101)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	res, attempts, err = m.Guess("u1", 42)
	require.NoError(t, err)
	assert.Equal(t, GuessCorrect, res)
	assert.Equal(t, 3, attempts)

	_, _, err = m.Guess("u1", 42)
	assert.ErrorIs(t, err, ErrNoGame)
}

func TestGuess_CustomMax(t *testing.T) {
	m := NewManager(Config{})
	m.intn = fixed(0)
	assert.Equal(t, 10, m.StartGuess("u1", 10))
	res, _, err := m.Guess("u1", 1)
	require.NoError(t, err)
	assert.Equal(t, GuessCorrect, res)
}

func TestRPS(t *testing.T) {
	m := NewManager(Config{})
	m.intn = fixed(0) // bot plays rock

	out, bot, err := m.RPS("Paper")
	require.NoError(t, err)
	assert.Equal(t, RPSWin, out)
	assert.Equal(t, "rock", bot)

	out, _, _ = m.RPS("scissors")
	assert.Equal(t, RPSLose, out)

	out, _, _ = m.RPS("rock")
	assert.Equal(t, RPSTie, out)

	_, _, err = m.RPS("lizard")
	assert.ErrorIs(t, err, ErrBadChoice)
}

func TestEightBall(t *testing.T) {
	m := NewManager(Config{})
	assert.NotEmpty(t, m.EightBall())
}

func TestTrivia(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(Config{})
	m.intn = fixed(0)
	m.now = func() time.Time { return now }

	q := m.StartTrivia("u1")
	assert.Equal(t, "tokyo", q.Answer)
	assert.True(t, m.Active("u1"))

	now = now.Add(2 * time.Second)
	res, err := m.Answer("u1", "  Tokyo ")
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.True(t, res.Fast)
	assert.False(t, m.Active("u1"))

	m.StartTrivia("u1")
	now = now.Add(10 * time.Second)
	res, err = m.Answer("u1", "osaka")
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.False(t, res.Fast)
	assert.Equal(t, "tokyo", res.Answer)

	m.StartTrivia("u1")
	now = now.Add(31 * time.Second)
	res, err = m.Answer("u1", "tokyo")
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.False(t, res.Correct)

	_, err = m.Answer("u1", "tokyo")
	assert.ErrorIs(t, err, ErrNoGame)
}

func TestTrivia_DoesNotAnswerGuessGame(t *testing.T) {
	m := NewManager(Config{})
	m.StartGuess("u1", 10)
	_, err := m.Answer("u1", "5")
	assert.ErrorIs(t, err, ErrNoGame)
	assert.True(t, m.Active("u1"))
}
