package personality

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tsunbot/pkg/storage"

	"github.com/rs/zerolog/log"
)

type Store interface {
	LoadPersonality(ctx context.Context, guildID string) (storage.PersonalityRecord, error)
	SavePersonality(ctx context.Context, rec storage.PersonalityRecord) error
}

// Registry owns one State per guild and persists them.
type Registry struct {
	store       Store
	defaultType Type
	decay       DecayConfig

	mu     sync.Mutex
	states map[string]*State
}

func NewRegistry(store Store, defaultType Type, decay DecayConfig) *Registry {
	if defaultType == "" {
		defaultType = Tsundere
	}
	return &Registry{
		store:       store,
		defaultType: defaultType,
		decay:       decay,
		states:      make(map[string]*State),
	}
}

// Get returns the guild's state, loading it from storage on first use.
func (r *Registry) Get(ctx context.Context, guildID string) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.states[guildID]; ok {
		return s, nil
	}

	rec, err := r.store.LoadPersonality(ctx, guildID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s := NewState(guildID, r.defaultType, r.decay)
		r.states[guildID] = s
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("load personality for guild %q: %w", guildID, err)
	}

	t, err := ParseType(rec.Type)
	if err != nil {
		t = r.defaultType
	}
	s := NewState(guildID, t, r.decay)
	s.mood = clamp(rec.Mood)
	for k, v := range rec.Traits {
		s.traits[k] = clamp(v)
	}
	s.lastDecay = rec.LastDecay
	r.states[guildID] = s
	return s, nil
}

func (r *Registry) Save(ctx context.Context, s *State) error {
	snap := s.Snapshot()
	return r.store.SavePersonality(ctx, storage.PersonalityRecord{
		GuildID:   snap.GuildID,
		Type:      string(snap.Type),
		Mood:      snap.Mood,
		Traits:    snap.Traits,
		LastDecay: snap.LastDecay,
	})
}

// Apply changes a guild's mood by the delta for event and persists it.
func (r *Registry) Apply(ctx context.Context, guildID, event string) (*State, error) {
	s, err := r.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}
	delta, ok := MoodDeltas[event]
	if !ok || delta == 0 {
		return s, nil
	}
	s.UpdateMood(delta, event)
	if err := r.Save(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// DecayAll decays every loaded state and persists the ones whose mood moved.
// It returns how many changed.
func (r *Registry) DecayAll(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	states := make([]*State, 0, len(r.states))
	for _, s := range r.states {
		states = append(states, s)
	}
	r.mu.Unlock()

	var errs []error
	changed := 0
	for _, s := range states {
		before := s.Mood()
		after := s.Decay(now)
		if before == after {
			continue
		}
		changed++
		if err := r.Save(ctx, s); err != nil {
			errs = append(errs, err)
			continue
		}
		log.Debug().Str("component", "personality").Str("guild", s.guildID).
			Int("from", before).Int("to", after).Msg("mood decayed")
	}
	return changed, errors.Join(errs...)
}
