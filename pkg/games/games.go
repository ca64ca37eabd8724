package games

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

const (
	DefaultGuessMax     = 100
	DefaultTriviaWindow = 30 * time.Second
	DefaultFastAnswer   = 5 * time.Second
)

var (
	ErrNoGame      = errors.New("no active game")
	ErrBadChoice   = errors.New("choose rock, paper or scissors")
	ErrOutOfBounds = errors.New("guess out of range")
)

type kind int

const (
	kindGuess kind = iota + 1
	kindTrivia
)

type session struct {
	kind     kind
	secret   int
	max      int
	attempts int
	question TriviaQuestion
	started  time.Time
}

type TriviaQuestion struct {
	Question string
	Answer   string
}

var DefaultTrivia = []TriviaQuestion{
	{"What's the capital of Japan?", "tokyo"},
	{"What's 7 x 8?", "56"},
	{"What color do you get mixing red and blue?", "purple"},
	{"How many days are in a leap year?", "366"},
	{"What's the largest planet in our solar system?", "jupiter"},
	{"How many sides does a hexagon have?", "6"},
	{"What gas do plants absorb from the air?", "carbon dioxide"},
	{"Which ocean is the largest?", "pacific"},
}

var eightBall = []string{
	"It is certain.", "Without a doubt.", "Yes, obviously.", "Most likely.",
	"Ask again later.", "Cannot predict now.", "Concentrate and ask again.",
	"Don't count on it.", "My reply is no.", "Very doubtful.", "Absolutely not, baka.",
}

type Config struct {
	GuessMax     int
	TriviaWindow time.Duration
	FastAnswer   time.Duration
	Trivia       []TriviaQuestion
}

// Manager tracks one active game per user.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	cfg      Config
	now      func() time.Time
	intn     func(n int) int
}

func NewManager(cfg Config) *Manager {
	if cfg.GuessMax <= 1 {
		cfg.GuessMax = DefaultGuessMax
	}
	if cfg.TriviaWindow <= 0 {
		cfg.TriviaWindow = DefaultTriviaWindow
	}
	if cfg.FastAnswer <= 0 {
		cfg.FastAnswer = DefaultFastAnswer
	}
	if len(cfg.Trivia) == 0 {
		cfg.Trivia = DefaultTrivia
	}
	return &Manager{
		sessions: make(map[string]*session),
		cfg:      cfg,
		now:      time.Now,
		intn:     rand.IntN,
	}
}

// StartGuess starts a number guessing game from 1 to max, replacing any game
// the user had running. It returns the upper bound in use.
func (m *Manager) StartGuess(userID string, max int) int {
	if max <= 1 {
		max = m.cfg.GuessMax
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = &session{kind: kindGuess, secret: m.intn(max) + 1, max: max}
	return max
}

type GuessResult int

const (
	GuessHigher GuessResult = iota + 1
	GuessLower
	GuessCorrect
)

// Guess scores n against the user's secret. The game ends on a correct guess.
func (m *Manager) Guess(userID string, n int) (GuessResult, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok || s.kind != kindGuess {
		return 0, 0, ErrNoGame
	}
	if n < 1 || n > s.max {
		return 0, s.attempts, ErrOutOfBounds
	}
	s.attempts++
	switch {
	case n < s.secret:
		return GuessHigher, s.attempts, nil
	case n > s.secret:
		return GuessLower, s.attempts, nil
	}
	delete(m.sessions, userID)
	return GuessCorrect, s.attempts, nil
}

type RPSOutcome int

const (
	RPSTie RPSOutcome = iota
	RPSWin
	RPSLose
)

var beats = map[string]string{"rock": "scissors", "paper": "rock", "scissors": "paper"}
var rpsChoices = []string{"rock", "paper", "scissors"}

// RPS plays one round. The outcome is from the user's side.
func (m *Manager) RPS(choice string) (RPSOutcome, string, error) {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if _, ok := beats[choice]; !ok {
		return 0, "", ErrBadChoice
	}
	m.mu.Lock()
	bot := rpsChoices[m.intn(len(rpsChoices))]
	m.mu.Unlock()

	switch {
	case choice == bot:
		return RPSTie, bot, nil
	case beats[choice] == bot:
		return RPSWin, bot, nil
	}
	return RPSLose, bot, nil
}

func (m *Manager) EightBall() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return eightBall[m.intn(len(eightBall))]
}

// StartTrivia asks the user a question; the answer window starts now.
func (m *Manager) StartTrivia(userID string) TriviaQuestion {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.cfg.Trivia[m.intn(len(m.cfg.Trivia))]
	m.sessions[userID] = &session{kind: kindTrivia, question: q, started: m.now()}
	return q
}

func (m *Manager) TriviaWindow() time.Duration { return m.cfg.TriviaWindow }

type TriviaResult struct {
	Correct  bool
	TimedOut bool
	Fast     bool
	Elapsed  time.Duration
	Answer   string
}

// Answer closes the user's trivia question, whatever the outcome.
func (m *Manager) Answer(userID, answer string) (TriviaResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok || s.kind != kindTrivia {
		return TriviaResult{}, ErrNoGame
	}
	delete(m.sessions, userID)

	res := TriviaResult{Elapsed: m.now().Sub(s.started), Answer: s.question.Answer}
	if res.Elapsed > m.cfg.TriviaWindow {
		res.TimedOut = true
		return res, nil
	}
	res.Correct = strings.EqualFold(strings.TrimSpace(answer), s.question.Answer)
	res.Fast = res.Correct && res.Elapsed < m.cfg.FastAnswer
	return res, nil
}

// Active reports whether the user has a game running.
func (m *Manager) Active(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	return ok
}
