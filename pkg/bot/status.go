package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

const statusRefreshInterval = 15 * time.Minute

// updateStatus sets the custom status line. A status in config.yml wins
// over the persona card's.
func (h *Handler) updateStatus(s Session) {
	text := h.cfg.Bot.Status
	if text == "" {
		text = h.persona.Status()
	}
	if text == "" {
		return
	}

	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{
			{
				Name:  h.persona.Name(),
				Type:  discordgo.ActivityTypeCustom,
				State: text,
			},
		},
		Status: "online",
		AFK:    false,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("error updating status")
	}
}

// runStatusLoop re-applies the status, which Discord drops on reconnects.
func (h *Handler) runStatusLoop(ctx context.Context) {
	ticker := time.NewTicker(statusRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s := h.getSession(); s != nil {
				h.updateStatus(s)
			}
		}
	}
}
