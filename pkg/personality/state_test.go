package personality

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tsunbot/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMood_Clamps(t *testing.T) {
	s := NewState("g1", Tsundere, DefaultDecay)
	assert.Equal(t, 50, s.Mood())

	assert.Equal(t, 100, s.UpdateMood(80, "compliment"))
	assert.Equal(t, 0, s.UpdateMood(-500, "insult"))
	assert.Equal(t, 7, s.UpdateMood(7, "chat"))
	assert.Equal(t, "chat", s.LastReason())
}

func TestMoodFor_Buckets(t *testing.T) {
	cases := map[int]Mood{
		0: Angry, 19: Angry,
		20: Annoyed, 39: Annoyed,
		40: Neutral, 50: Neutral, 59: Neutral,
		60: Content, 79: Content,
		80: Happy, 100: Happy,
		-3: Angry, 140: Happy,
	}
	for mood, want := range cases {
		assert.Equal(t, want, MoodFor(mood), "mood %d", mood)
	}
}

func TestDecay_NeverOvershootsNeutral(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	decay := DecayConfig{Step: 5, Period: 10 * time.Minute}

	for _, initial := range []int{0, 3, 48, 52, 97, 100} {
		s := NewState("g", Tsundere, decay)
		s.UpdateMood(initial-s.Mood(), "setup")
		s.Decay(start)

		above := initial > NeutralMood
		for i := 1; i <= 30; i++ {
			m := s.Decay(start.Add(time.Duration(i) * 7 * time.Minute))
			if above {
				assert.GreaterOrEqual(t, m, NeutralMood, "initial %d step %d", initial, i)
			} else {
				assert.LessOrEqual(t, m, NeutralMood, "initial %d step %d", initial, i)
			}
		}
		assert.Equal(t, NeutralMood, s.Mood(), "initial %d converges", initial)
	}
}

func TestDecay_WholePeriodsOnly(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewState("g", Tsundere, DecayConfig{Step: 5, Period: 10 * time.Minute})
	s.UpdateMood(40, "setup") // 90
	s.Decay(start)

	assert.Equal(t, 90, s.Decay(start.Add(9*time.Minute)))
	assert.Equal(t, 85, s.Decay(start.Add(10*time.Minute)))
	// Remainder carries over: 10 + 25 minutes = 3 full periods in total.
	assert.Equal(t, 75, s.Decay(start.Add(35*time.Minute)))
	assert.Equal(t, 60, s.Decay(start.Add(65*time.Minute)))
}

func TestTraits(t *testing.T) {
	s := NewState("g", Kuudere, DefaultDecay)
	assert.Equal(t, 80, s.Trait("patience"))
	s.SetTrait("patience", 150)
	assert.Equal(t, 100, s.Trait("patience"))

	// Traits are per state, not shared with the defaults table.
	other := NewState("h", Kuudere, DefaultDecay)
	assert.Equal(t, 80, other.Trait("patience"))

	snap := s.Snapshot()
	snap.Traits["patience"] = 1
	assert.Equal(t, 100, s.Trait("patience"))
}

func TestParseType(t *testing.T) {
	got, err := ParseType(" Dandere ")
	require.NoError(t, err)
	assert.Equal(t, Dandere, got)

	_, err = ParseType("yandere")
	assert.Error(t, err)
}

func TestRegistry_PerGuildAndPersisted(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "p.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	reg := NewRegistry(store, Tsundere, DefaultDecay)
	g1, err := reg.Apply(ctx, "g1", "rude")
	require.NoError(t, err)
	assert.Equal(t, 35, g1.Mood())

	g2, err := reg.Get(ctx, "g2")
	require.NoError(t, err)
	assert.Equal(t, 50, g2.Mood())

	again, err := reg.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Same(t, g1, again)

	// A fresh registry reads the saved mood back.
	reloaded, err := NewRegistry(store, Tsundere, DefaultDecay).Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 35, reloaded.Mood())
	assert.Equal(t, Tsundere, reloaded.Type())
}

func TestRegistry_DecayAll(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "p.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	reg := NewRegistry(store, Tsundere, DecayConfig{Step: 5, Period: time.Minute})
	s, err := reg.Get(ctx, "g1")
	require.NoError(t, err)
	s.UpdateMood(30, "setup")

	start := time.Now()
	n, err := reg.DecayAll(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = reg.DecayAll(ctx, start.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 70, s.Mood())

	rec, err := store.LoadPersonality(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, 70, rec.Mood)
}
