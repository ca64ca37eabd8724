package relationship

import (
	"context"
	"errors"
	"time"

	"tsunbot/pkg/storage"
)

const (
	MinLevel = 0
	MaxLevel = 100
)

// Tier is a named bracket of relationship levels.
type Tier struct {
	Name     string
	Key      string // persona card key
	MinLevel int
	MaxLevel int
}

// Tiers are contiguous and together cover [MinLevel, MaxLevel].
var Tiers = []Tier{
	{Name: "Stranger", Key: "stranger", MinLevel: 0, MaxLevel: 19},
	{Name: "Acquaintance", Key: "acquaintance", MinLevel: 20, MaxLevel: 39},
	{Name: "Friend", Key: "friend", MinLevel: 40, MaxLevel: 59},
	{Name: "Close Friend", Key: "close_friend", MinLevel: 60, MaxLevel: 79},
	{Name: "Best Friend", Key: "best_friend", MinLevel: 80, MaxLevel: 100},
}

type Milestone struct {
	Threshold int
	Name      string
}

var Milestones = []Milestone{
	{Threshold: 10, Name: "First Encounter"},
	{Threshold: 25, Name: "Getting Acquainted"},
	{Threshold: 50, Name: "Real Friends"},
	{Threshold: 75, Name: "Close Bond"},
	{Threshold: 100, Name: "Best Friends Forever"},
}

// Gains is the level change applied per kind of interaction.
var Gains = map[string]int{
	"chat":       2,
	"compliment": 3,
	"game":       1,
	"utility":    1,
	"reminder":   1,
	"rude":       -5,
}

// Clamp limits a level to [MinLevel, MaxLevel].
func Clamp(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// TierFor returns the tier containing score. Out of range scores are clamped first.
func TierFor(score int) Tier {
	score = Clamp(score)
	for _, t := range Tiers {
		if score >= t.MinLevel && score <= t.MaxLevel {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// LevelName maps a score to its tier name.
func LevelName(score int) string {
	return TierFor(score).Name
}

// Crossed returns the milestones reached when moving from prev to next,
// lowest first. Moving down never crosses a milestone.
func Crossed(prev, next int) []Milestone {
	var out []Milestone
	for _, m := range Milestones {
		if prev < m.Threshold && m.Threshold <= next {
			out = append(out, m)
		}
	}
	return out
}

// Store is the persistence the tracker needs.
type Store interface {
	GetRelationship(ctx context.Context, userID, guildID string) (storage.Relationship, error)
	UpdateRelationship(ctx context.Context, userID, guildID string, mutate func(*storage.Relationship)) (storage.Relationship, storage.Relationship, error)
	TopRelationships(ctx context.Context, guildID string, limit int) ([]storage.Relationship, error)
}

// Update is the outcome of one interaction.
type Update struct {
	Previous   storage.Relationship
	Current    storage.Relationship
	PrevTier   Tier
	Tier       Tier
	Milestones []Milestone
}

func (u Update) TierChanged() bool {
	return u.PrevTier.Key != u.Tier.Key
}

type Tracker struct {
	store Store
	now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Update adds increment to the user's level in a guild, counts the
// interaction and reports any milestones crossed.
func (t *Tracker) Update(ctx context.Context, userID, guildID string, increment int) (Update, error) {
	now := t.now().UTC()
	prev, cur, err := t.store.UpdateRelationship(ctx, userID, guildID, func(r *storage.Relationship) {
		r.Level = Clamp(r.Level + increment)
		r.InteractionCount++
		r.LastInteraction = now
	})
	if err != nil {
		return Update{}, err
	}

	return Update{
		Previous:   prev,
		Current:    cur,
		PrevTier:   TierFor(prev.Level),
		Tier:       TierFor(cur.Level),
		Milestones: Crossed(prev.Level, cur.Level),
	}, nil
}

// Record applies the gain for an interaction kind from Gains.
func (t *Tracker) Record(ctx context.Context, userID, guildID, kind string) (Update, error) {
	return t.Update(ctx, userID, guildID, Gains[kind])
}

// Get returns the stored relationship, or a zero one for users never seen.
func (t *Tracker) Get(ctx context.Context, userID, guildID string) (storage.Relationship, error) {
	r, err := t.store.GetRelationship(ctx, userID, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return storage.Relationship{UserID: userID, GuildID: guildID}, nil
	}
	return r, err
}

func (t *Tracker) Top(ctx context.Context, guildID string, limit int) ([]storage.Relationship, error) {
	if limit <= 0 {
		limit = 10
	}
	return t.store.TopRelationships(ctx, guildID, limit)
}
