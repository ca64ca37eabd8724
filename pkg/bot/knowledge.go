package bot

import (
	"errors"
	"strings"

	"tsunbot/pkg/persona"
	"tsunbot/pkg/storage"
)

func (h *Handler) cmdRemember(c *cmdContext) (string, error) {
	key := c.args[0]
	content := strings.TrimSpace(strings.TrimPrefix(c.rest, key))
	err := h.store.SetFact(c.ctx, storage.Fact{
		GuildID:   c.guildID,
		Key:       key,
		Content:   content,
		CreatedBy: c.userID,
	})
	if err != nil {
		return "", err
	}
	return h.persona.Activity("knowledge", "saved", persona.Vars{"key": strings.ToLower(key), "content": content}), nil
}

func (h *Handler) cmdRecall(c *cmdContext) (string, error) {
	key := strings.ToLower(c.args[0])
	f, err := h.store.GetFact(c.ctx, c.guildID, key)
	if errors.Is(err, storage.ErrNotFound) {
		return h.persona.Activity("knowledge", "unknown", persona.Vars{"key": key}), nil
	}
	if err != nil {
		return "", err
	}
	return h.persona.Activity("knowledge", "recalled", persona.Vars{"key": f.Key, "content": f.Content}), nil
}

func (h *Handler) cmdForget(c *cmdContext) (string, error) {
	key := strings.ToLower(c.args[0])
	ok, err := h.store.DeleteFact(c.ctx, c.guildID, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return h.persona.Activity("knowledge", "unknown", persona.Vars{"key": key}), nil
	}
	return h.persona.Activity("knowledge", "forgotten", persona.Vars{"key": key}), nil
}

func (h *Handler) cmdFacts(c *cmdContext) (string, error) {
	facts, err := h.store.ListFacts(c.ctx, c.guildID)
	if err != nil {
		return "", err
	}
	if len(facts) == 0 {
		return h.persona.Activity("knowledge", "none", nil), nil
	}
	keys := make([]string, 0, len(facts))
	for _, f := range facts {
		keys = append(keys, "`"+f.Key+"`")
	}
	return h.persona.Activity("knowledge", "list", persona.Vars{"list": strings.Join(keys, ", ")}), nil
}
