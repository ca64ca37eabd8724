package bot

import (
	"fmt"
	"strings"
	"time"

	"tsunbot/pkg/persona"
)

func (h *Handler) cmdReloadPersona(c *cmdContext) (string, error) {
	if err := h.persona.Reload(); err != nil {
		h.logger.Error().Err(err).Msg("persona reload failed")
		return h.persona.Activity("admin", "reload_failed", persona.Vars{"error": shortError(err)}), nil
	}
	h.logger.Info().Str("name", h.persona.Name()).Msg("persona reloaded")
	if s := h.getSession(); s != nil {
		h.updateStatus(s)
	}
	return h.persona.Activity("admin", "reloaded", nil), nil
}

func (h *Handler) cmdAPIStatus(c *cmdContext) (string, error) {
	reporter, ok := h.ai.(KeyStatusReporter)
	if !ok {
		return "No key status available.", nil
	}
	var sb strings.Builder
	sb.WriteString("**Gemini keys**\n")
	now := h.now()
	for i, k := range reporter.Status() {
		state := "ok"
		if k.CoolingDown {
			state = fmt.Sprintf("cooling down (%s left)", k.CooldownUntil.Sub(now).Round(time.Second))
		}
		last := "never"
		if !k.LastSuccess.IsZero() {
			last = fmt.Sprintf("<t:%d:R>", k.LastSuccess.Unix())
		}
		fmt.Fprintf(&sb, "%d. `%s` %s, %d requests, %d failures, last success %s\n",
			i+1, k.Key, state, k.Requests, k.FailureCount, last)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (h *Handler) cmdShutdown(c *cmdContext) (string, error) {
	h.logger.Warn().Str("by", c.userID).Msg("shutdown requested")
	c.after = func() { h.exit(false) }
	return h.persona.Activity("admin", "shutdown", nil), nil
}

func (h *Handler) cmdRestart(c *cmdContext) (string, error) {
	h.logger.Warn().Str("by", c.userID).Msg("restart requested")
	c.after = func() { h.exit(true) }
	return h.persona.Activity("admin", "restart", nil), nil
}

func (h *Handler) exit(restart bool) {
	if h.onExit == nil {
		h.logger.Warn().Msg("no exit handler registered")
		return
	}
	h.onExit(restart)
}
