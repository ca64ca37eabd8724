package storage

import "time"

// ConversationMessage is one turn of a user's chat with the bot.
type ConversationMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Relationship tracks how well the bot knows a user in one guild.
type Relationship struct {
	UserID           string
	GuildID          string
	InteractionCount int
	Level            int
	LastInteraction  time.Time
	CreatedAt        time.Time
}

type Reminder struct {
	ID            int64
	UserID        string
	GuildID       string
	ChannelID     string
	Message       string
	ScheduledTime time.Time
	CreatedAt     time.Time
	Sent          bool
	Recurrence    string
}

// Subscription is a daily content feed a user signed up for in a channel.
type Subscription struct {
	ID            int64
	UserID        string
	GuildID       string
	ChannelID     string
	Type          string
	Active        bool
	CreatedAt     time.Time
	LastTriggered time.Time
}

type Fact struct {
	ID        int64
	GuildID   string
	Key       string
	Content   string
	CreatedBy string
	CreatedAt time.Time
}

// PersonalityRecord is the persisted form of a guild's personality state.
type PersonalityRecord struct {
	GuildID   string
	Type      string
	Mood      int
	Traits    map[string]int
	LastDecay time.Time
	UpdatedAt time.Time
}
