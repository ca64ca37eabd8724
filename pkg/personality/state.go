package personality

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Type string

const (
	Tsundere Type = "tsundere"
	Kuudere  Type = "kuudere"
	Deredere Type = "deredere"
	Dandere  Type = "dandere"
)

// ParseType accepts a personality type name in any case.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := DefaultTraits[t]; !ok {
		return "", fmt.Errorf("unknown personality type %q", s)
	}
	return t, nil
}

// DefaultTraits are the starting trait values of each personality type.
var DefaultTraits = map[Type]map[string]int{
	Tsundere: {"pride": 80, "warmth": 35, "sarcasm": 70, "patience": 30, "honesty": 45},
	Kuudere:  {"pride": 60, "warmth": 25, "sarcasm": 40, "patience": 80, "honesty": 70},
	Deredere: {"pride": 20, "warmth": 90, "sarcasm": 10, "patience": 70, "honesty": 80},
	Dandere:  {"pride": 30, "warmth": 60, "sarcasm": 15, "patience": 60, "honesty": 50},
}

type Mood string

const (
	Angry   Mood = "ANGRY"
	Annoyed Mood = "ANNOYED"
	Neutral Mood = "NEUTRAL"
	Content Mood = "CONTENT"
	Happy   Mood = "HAPPY"
)

const (
	MinMood     = 0
	MaxMood     = 100
	NeutralMood = 50
)

// MoodDeltas is the mood change applied for each kind of event.
var MoodDeltas = map[string]int{
	"chat":             2,
	"compliment_given": 3,
	"rude":             -15,
	"game_won_by_bot":  5,
	"game_lost_by_bot": -5,
	"error":            -3,
}

func clamp(v int) int {
	if v < MinMood {
		return MinMood
	}
	if v > MaxMood {
		return MaxMood
	}
	return v
}

// MoodFor buckets a numeric mood into its named state.
func MoodFor(mood int) Mood {
	switch mood = clamp(mood); {
	case mood < 20:
		return Angry
	case mood < 40:
		return Annoyed
	case mood < 60:
		return Neutral
	case mood < 80:
		return Content
	default:
		return Happy
	}
}

// DecayConfig controls how fast the mood drifts back to neutral.
type DecayConfig struct {
	Step   int
	Period time.Duration
}

var DefaultDecay = DecayConfig{Step: 5, Period: 10 * time.Minute}

// State is the bot's personality in one guild.
type State struct {
	mu         sync.RWMutex
	guildID    string
	ptype      Type
	mood       int
	traits     map[string]int
	lastDecay  time.Time
	lastReason string
	decay      DecayConfig
}

func NewState(guildID string, t Type, decay DecayConfig) *State {
	traits := make(map[string]int, len(DefaultTraits[t]))
	for k, v := range DefaultTraits[t] {
		traits[k] = v
	}
	if decay.Step <= 0 || decay.Period <= 0 {
		decay = DefaultDecay
	}
	return &State{
		guildID: guildID,
		ptype:   t,
		mood:    NeutralMood,
		traits:  traits,
		decay:   decay,
	}
}

// UpdateMood adds delta, clamps to [0,100] and returns the new mood.
func (s *State) UpdateMood(delta int, reason string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.mood
	s.mood = clamp(s.mood + delta)
	s.lastReason = reason
	log.Debug().
		Str("component", "personality").
		Str("guild", s.guildID).
		Int("from", old).
		Int("to", s.mood).
		Str("reason", reason).
		Msg("mood updated")
	return s.mood
}

func (s *State) Mood() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mood
}

func (s *State) MoodState() Mood {
	return MoodFor(s.Mood())
}

func (s *State) Type() Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ptype
}

func (s *State) LastReason() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReason
}

func (s *State) Trait(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.traits[name]
}

func (s *State) SetTrait(name string, value int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traits[name] = clamp(value)
}

// Decay pulls the mood toward neutral by one step per whole period elapsed
// since the last decay. It never crosses neutral. The first call only
// starts the clock.
func (s *State) Decay(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastDecay.IsZero() {
		s.lastDecay = now
		return s.mood
	}
	periods := int(now.Sub(s.lastDecay) / s.decay.Period)
	if periods <= 0 {
		return s.mood
	}
	s.lastDecay = s.lastDecay.Add(time.Duration(periods) * s.decay.Period)

	move := periods * s.decay.Step
	switch {
	case s.mood > NeutralMood:
		s.mood = max(NeutralMood, s.mood-move)
	case s.mood < NeutralMood:
		s.mood = min(NeutralMood, s.mood+move)
	}
	return s.mood
}

// Snapshot is a copy of the state safe to read without locking.
type Snapshot struct {
	GuildID   string
	Type      Type
	Mood      int
	MoodState Mood
	Traits    map[string]int
	LastDecay time.Time
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	traits := make(map[string]int, len(s.traits))
	for k, v := range s.traits {
		traits[k] = v
	}
	return Snapshot{
		GuildID:   s.guildID,
		Type:      s.ptype,
		Mood:      s.mood,
		MoodState: MoodFor(s.mood),
		Traits:    traits,
		LastDecay: s.lastDecay,
	}
}
