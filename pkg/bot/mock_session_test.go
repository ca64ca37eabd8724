package bot

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"

	"tsunbot/pkg/gemini"
	"tsunbot/pkg/utilities"
)

// mockSession implements Session for testing. Sent messages are recorded;
// the Func fields override individual calls.
type mockSession struct {
	mu           sync.Mutex
	sent         []sentMessage
	typingCalls  int
	responses    []*discordgo.InteractionResponse
	followups    []*discordgo.WebhookParams
	statuses     []discordgo.UpdateStatusData
	kicked       []string
	roleChanges  []string
	createdRoles []*discordgo.RoleParams

	ChannelMessageSendFunc     func(channelID, content string) (*discordgo.Message, error)
	ChannelFunc                func(channelID string) (*discordgo.Channel, error)
	UserChannelPermissionsFunc func(userID, channelID string) (int64, error)
	GuildRolesFunc             func(guildID string) ([]*discordgo.Role, error)
}

type sentMessage struct {
	ChannelID string
	Content   string
	Reply     bool
}

func (m *mockSession) record(channelID, content string, reply bool) *discordgo.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{ChannelID: channelID, Content: content, Reply: reply})
	return &discordgo.Message{ID: "mock_msg_id", ChannelID: channelID, Content: content}
}

func (m *mockSession) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// Last returns the content of the most recent message, or "".
func (m *mockSession) Last() string {
	sent := m.Sent()
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1].Content
}

func (m *mockSession) ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.ChannelMessageSendFunc != nil {
		if _, err := m.ChannelMessageSendFunc(channelID, content); err != nil {
			return nil, err
		}
	}
	return m.record(channelID, content, false), nil
}

func (m *mockSession) ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record(channelID, content, true), nil
}

func (m *mockSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return m.record(channelID, data.Content, data.Reference != nil), nil
}

func (m *mockSession) ChannelTyping(channelID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	m.typingCalls++
	m.mu.Unlock()
	return nil
}

func (m *mockSession) User(userID string) (*discordgo.User, error) {
	return &discordgo.User{ID: userID, Username: "TestUser"}, nil
}

func (m *mockSession) Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if m.ChannelFunc != nil {
		return m.ChannelFunc(channelID)
	}
	return &discordgo.Channel{ID: channelID, GuildID: "guild1", Type: discordgo.ChannelTypeGuildText}, nil
}

func (m *mockSession) UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "dm_" + recipientID, Type: discordgo.ChannelTypeDM}, nil
}

func (m *mockSession) UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error) {
	if m.UserChannelPermissionsFunc != nil {
		return m.UserChannelPermissionsFunc(userID, channelID)
	}
	return 0, nil
}

func (m *mockSession) UpdateStatusComplex(usd discordgo.UpdateStatusData) error {
	m.mu.Lock()
	m.statuses = append(m.statuses, usd)
	m.mu.Unlock()
	return nil
}

func (m *mockSession) InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	m.responses = append(m.responses, resp)
	m.mu.Unlock()
	return nil
}

func (m *mockSession) FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	m.followups = append(m.followups, data)
	m.mu.Unlock()
	return &discordgo.Message{ID: "mock_followup_id", Content: data.Content}, nil
}

func (m *mockSession) GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	if m.GuildRolesFunc != nil {
		return m.GuildRolesFunc(guildID)
	}
	return nil, nil
}

func (m *mockSession) GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error) {
	m.mu.Lock()
	m.createdRoles = append(m.createdRoles, data)
	m.mu.Unlock()
	return &discordgo.Role{ID: "role_new", Name: data.Name}, nil
}

func (m *mockSession) GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	m.roleChanges = append(m.roleChanges, "+"+userID+":"+roleID)
	m.mu.Unlock()
	return nil
}

func (m *mockSession) GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	m.roleChanges = append(m.roleChanges, "-"+userID+":"+roleID)
	m.mu.Unlock()
	return nil
}

func (m *mockSession) GuildMemberDeleteWithReason(guildID, userID, reason string, options ...discordgo.RequestOption) error {
	m.mu.Lock()
	m.kicked = append(m.kicked, userID)
	m.mu.Unlock()
	return nil
}

func (m *mockSession) GuildChannelCreate(guildID, name string, ctype discordgo.ChannelType, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: "chan_" + name, GuildID: guildID, Name: name, Type: ctype}, nil
}

type mockAI struct {
	mu           sync.Mutex
	calls        [][]gemini.Message
	GenerateFunc func(ctx context.Context, messages []gemini.Message) (string, error)
}

func (m *mockAI) Generate(ctx context.Context, messages []gemini.Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, messages)
	}
	return "Hmph. Fine.", nil
}

func (m *mockAI) Calls() [][]gemini.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]gemini.Message(nil), m.calls...)
}

type mockFetcher struct {
	WeatherFunc func(ctx context.Context, city string) (utilities.Weather, error)
	factCalls   int
}

func (m *mockFetcher) Weather(ctx context.Context, city string) (utilities.Weather, error) {
	if m.WeatherFunc != nil {
		return m.WeatherFunc(ctx, city)
	}
	return utilities.Weather{City: city, Temp: 18.3, Description: "clear sky"}, nil
}

func (m *mockFetcher) RandomFact(ctx context.Context) (string, error) {
	m.factCalls++
	return "Octopuses have three hearts.", nil
}

func (m *mockFetcher) RandomJoke(ctx context.Context) (utilities.Joke, error) {
	return utilities.Joke{Setup: "Knock knock.", Punchline: "Go away."}, nil
}

func (m *mockFetcher) CatFact(ctx context.Context) (string, error) {
	return "Cats have five toes on their front paws.", nil
}
