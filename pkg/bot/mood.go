package bot

import (
	"context"
	"time"
)

// runMoodDecayLoop drifts every guild's mood back towards neutral on the
// personality decay interval.
func (h *Handler) runMoodDecayLoop(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.DecayInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := h.personality.DecayAll(ctx, h.now())
			if err != nil {
				h.logger.Error().Err(err).Msg("error decaying mood")
				continue
			}
			if changed > 0 {
				h.logger.Debug().Int("guilds", changed).Msg("mood decayed")
			}
		}
	}
}
