package persona

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"tsunbot/pkg/gemini"
)

// Vars are substituted into {placeholder} markers of a line.
type Vars map[string]string

// Manager serves persona lines from a card that can be reloaded at runtime.
// Lookups missing from the loaded card fall back to the built-in card.
type Manager struct {
	mu       sync.RWMutex
	path     string
	prefix   string
	card     *Card
	fallback *Card
	pick     func(n int) int
}

// Load reads the card at path. A missing file is not an error: the built-in
// card is used instead.
func Load(path, prefix string) (*Manager, error) {
	m := &Manager{
		path:     path,
		prefix:   prefix,
		fallback: DefaultCard(),
		pick:     rand.IntN,
	}
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

// New wraps an in-memory card.
func New(card *Card, prefix string) *Manager {
	return &Manager{card: card, prefix: prefix, fallback: DefaultCard(), pick: rand.IntN}
}

// Reload re-reads the card file. On failure the current card is kept.
func (m *Manager) Reload() error {
	card, err := readCard(m.path)
	if err != nil {
		return err
	}
	if card == nil {
		card = DefaultCard()
		log.Info().Str("component", "persona").Str("path", m.path).Msg("no persona card found, using built-in")
	} else {
		log.Info().Str("component", "persona").Str("path", m.path).Str("name", card.Name).Msg("persona card loaded")
	}

	m.mu.Lock()
	m.card = card
	m.mu.Unlock()
	return nil
}

func readCard(path string) (*Card, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read persona card: %w", err)
	}
	var card Card
	if err := yaml.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("parse persona card %s: %w", path, err)
	}
	if card.Name == "" {
		return nil, fmt.Errorf("persona card %s: name is required", path)
	}
	return &card, nil
}

func (m *Manager) Name() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.card.Name
}

// Status is the presence text shown under the bot's name.
func (m *Manager) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.card.Status != "" {
		return m.card.Status
	}
	return m.fallback.Status
}

// Response picks a response_templates line.
func (m *Manager) Response(kind string, vars Vars) string {
	return m.render(func(c *Card) Lines { return c.ResponseTemplates[kind] }, vars)
}

// Relationship picks a relationship_responses line for a tier key such as
// "friend" and a kind such as "greeting".
func (m *Manager) Relationship(tier, kind string, vars Vars) string {
	return m.render(func(c *Card) Lines { return c.RelationshipResponses[tier][kind] }, vars)
}

// Activity picks an activity_responses line.
func (m *Manager) Activity(activity, key string, vars Vars) string {
	return m.render(func(c *Card) Lines { return c.ActivityResponses[activity][key] }, vars)
}

// Mood picks a mood_responses line for a mood state such as "ANNOYED".
func (m *Manager) Mood(state string, vars Vars) string {
	return m.render(func(c *Card) Lines { return c.MoodResponses[state] }, vars)
}

// Help renders the command overview, one category per line.
func (m *Manager) Help() string {
	m.mu.RLock()
	help := m.card.Help
	if len(help) == 0 {
		help = m.fallback.Help
	}
	name := m.card.Name
	m.mu.RUnlock()

	cats := make([]string, 0, len(help))
	for cat := range help {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s's commands** (prefix `%s`). Not that I want you using them.\n", name, m.prefix)
	for _, cat := range cats {
		fmt.Fprintf(&sb, "**%s**: %s\n", cat, m.fill(help[cat], nil))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Manager) render(lookup func(*Card) Lines, vars Vars) string {
	m.mu.RLock()
	lines := lookup(m.card)
	if len(lines) == 0 {
		lines = lookup(m.fallback)
	}
	var line string
	if len(lines) > 0 {
		line = lines[m.pick(len(lines))]
	}
	m.mu.RUnlock()
	return m.fill(line, vars)
}

func (m *Manager) fill(line string, vars Vars) string {
	if !strings.Contains(line, "{") {
		return line
	}
	m.mu.RLock()
	pairs := []string{"{name}", m.card.Name, "{prefix}", m.prefix}
	m.mu.RUnlock()
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(line)
}

// KnownFact is a remembered guild fact offered to the model.
type KnownFact struct {
	Key     string
	Content string
}

type PromptInput struct {
	Question string
	UserName string
	Tier     string
	Mood     string
	History  []gemini.Message
	Facts    []KnownFact
}

// Prompt builds the message list for one AI question: system prompt, prior
// turns, then the question.
func (m *Manager) Prompt(in PromptInput) []gemini.Message {
	m.mu.RLock()
	card := m.card
	system := card.SystemPrompt
	if system == "" {
		system = m.fallback.SystemPrompt
	}
	m.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString(m.fill(system, Vars{"personality": card.Personality, "description": card.Description}))
	if len(card.CoreTraits) > 0 {
		fmt.Fprintf(&sb, "\nCore traits: %s.", strings.Join(card.CoreTraits, ", "))
	}
	if in.UserName != "" {
		fmt.Fprintf(&sb, "\nYou are talking to %s.", in.UserName)
	}
	if in.Tier != "" {
		fmt.Fprintf(&sb, " Your relationship with them: %s.", in.Tier)
	}
	if in.Mood != "" {
		fmt.Fprintf(&sb, "\nYour current mood: %s. Let it color your tone.", in.Mood)
	}
	if len(in.Facts) > 0 {
		sb.WriteString("\nThings you were taught in this server:")
		for _, f := range in.Facts {
			fmt.Fprintf(&sb, "\n- %s: %s", f.Key, f.Content)
		}
	}

	msgs := make([]gemini.Message, 0, len(in.History)+2)
	msgs = append(msgs, gemini.Message{Role: "system", Content: sb.String()})
	msgs = append(msgs, in.History...)
	msgs = append(msgs, gemini.Message{Role: "user", Content: in.Question})
	return msgs
}
