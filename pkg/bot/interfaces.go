package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"tsunbot/pkg/gemini"
	"tsunbot/pkg/search"
	"tsunbot/pkg/storage"
	"tsunbot/pkg/utilities"
)

// Session interface abstracts discordgo.Session for testing
type Session interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) (err error)
	User(userID string) (*discordgo.User, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	UpdateStatusComplex(usd discordgo.UpdateStatusData) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)

	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error
	GuildChannelCreate(guildID, name string, ctype discordgo.ChannelType, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// DiscordSession adapts discordgo.Session to the Session interface
type DiscordSession struct {
	*discordgo.Session
}

func (s *DiscordSession) User(userID string) (*discordgo.User, error) {
	return s.Session.User(userID)
}

type AIClient interface {
	Generate(ctx context.Context, messages []gemini.Message) (string, error)
}

// KeyStatusReporter is implemented by AI clients that rotate API keys.
type KeyStatusReporter interface {
	Status() []gemini.KeyStatus
}

// Store is the persistence the handler uses directly. Relationships,
// personality and reminders go through their own packages.
type Store interface {
	AddConversationMessage(ctx context.Context, msg storage.ConversationMessage) (storage.ConversationMessage, error)
	RecentConversation(ctx context.Context, userID, guildID string, limit int) ([]storage.ConversationMessage, error)

	Subscribe(ctx context.Context, sub storage.Subscription) error
	Unsubscribe(ctx context.Context, userID, subType string) (bool, error)
	UserSubscriptions(ctx context.Context, userID string) ([]storage.Subscription, error)
	DueSubscriptions(ctx context.Context, subType string, cutoff time.Time) ([]storage.Subscription, error)
	MarkSubscriptionTriggered(ctx context.Context, id int64, at time.Time) error

	SetFact(ctx context.Context, f storage.Fact) error
	GetFact(ctx context.Context, guildID, key string) (storage.Fact, error)
	DeleteFact(ctx context.Context, guildID, key string) (bool, error)
	ListFacts(ctx context.Context, guildID string) ([]storage.Fact, error)
	SearchFacts(ctx context.Context, guildID string, words []string) ([]storage.Fact, error)
}

// Fetcher serves the web-backed utility commands.
type Fetcher interface {
	Weather(ctx context.Context, city string) (utilities.Weather, error)
	RandomFact(ctx context.Context) (string, error)
	RandomJoke(ctx context.Context) (utilities.Joke, error)
	CatFact(ctx context.Context) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]search.Result, error)
}
