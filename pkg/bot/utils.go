package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"tsunbot/pkg/relationship"
	"tsunbot/pkg/storage"
)

// MaxMessageLength is Discord's per-message character limit.
const MaxMessageLength = 2000

func (h *Handler) sendSplitMessage(s Session, channelID, content string, reference *discordgo.MessageReference) {
	isFirstPart := true
	for _, part := range splitMessage(content, MaxMessageLength) {
		var err error
		if reference == nil {
			_, err = s.ChannelMessageSend(channelID, part)
		} else if isFirstPart {
			_, err = s.ChannelMessageSendReply(channelID, part, reference)
			isFirstPart = false
		} else {
			// Later parts stay attached to the same message without pinging again.
			_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
				Content:   part,
				Reference: reference,
				AllowedMentions: &discordgo.MessageAllowedMentions{
					RepliedUser: false,
				},
			})
		}
		if err != nil {
			h.logger.Error().Err(err).Str("channel", channelID).Msg("error sending message part")
		}
	}
}

// splitMessage cuts content into chunks of at most limit characters,
// preferring line breaks, then spaces.
func splitMessage(content string, limit int) []string {
	content = strings.TrimSpace(content)
	var parts []string
	for utf8.RuneCountInString(content) > limit {
		cut := byteIndexOfRune(content, limit)
		if i := strings.LastIndex(content[:cut], "\n"); i > 0 {
			cut = i
		} else if i := strings.LastIndex(content[:cut], " "); i > 0 {
			cut = i
		}
		if part := strings.TrimSpace(content[:cut]); part != "" {
			parts = append(parts, part)
		}
		content = strings.TrimSpace(content[cut:])
	}
	if content != "" {
		parts = append(parts, content)
	}
	return parts
}

func byteIndexOfRune(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// splitCommand separates "name rest of line" after the prefix.
func splitCommand(s string) (name, rest string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\n"); i >= 0 {
		return s[:i], strings.TrimSpace(s[i+1:])
	}
	return s, ""
}

func displayName(u *discordgo.User) string {
	if u == nil {
		return "someone"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

func itoa(n int) string { return strconv.Itoa(n) }

func shortError(err error) string {
	msg := err.Error()
	if utf8.RuneCountInString(msg) > 120 {
		msg = msg[:byteIndexOfRune(msg, 120)] + "…"
	}
	return msg
}

var (
	userMentionRe    = regexp.MustCompile(`^<@!?(\d+)>$`)
	channelMentionRe = regexp.MustCompile(`^<#(\d+)>$`)
	snowflakeRe      = regexp.MustCompile(`^\d{15,21}$`)
)

// parseUserID accepts <@id>, <@!id> or a bare id.
func parseUserID(token string) (string, bool) {
	if m := userMentionRe.FindStringSubmatch(token); m != nil {
		return m[1], true
	}
	if snowflakeRe.MatchString(token) {
		return token, true
	}
	return "", false
}

// parseChannelID accepts <#id> or a bare id.
func parseChannelID(token string) (string, bool) {
	if m := channelMentionRe.FindStringSubmatch(token); m != nil {
		return m[1], true
	}
	if snowflakeRe.MatchString(token) {
		return token, true
	}
	return "", false
}

var rudeWords = []string{
	"stupid", "idiot", "dumb", "shut up", "useless", "hate you", "annoying", "trash bot", "stfu",
}

func isRude(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range rudeWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// formatRelationship renders a level with a progress bar for the current tier.
func formatRelationship(rel storage.Relationship) string {
	tier := relationship.TierFor(rel.Level)

	span := tier.MaxLevel - tier.MinLevel + 1
	filled := (rel.Level - tier.MinLevel + 1) * 10 / span
	if filled > 10 {
		filled = 10
	}
	if filled < 0 {
		filled = 0
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)

	if tier.MaxLevel >= relationship.MaxLevel {
		return fmt.Sprintf("**%s** (MAX tier)\n%s `%d/%d`", tier.Name, bar, rel.Level, relationship.MaxLevel)
	}
	return fmt.Sprintf("**%s**\n%s `%d/%d` to the next tier", tier.Name, bar, rel.Level, tier.MaxLevel+1)
}
