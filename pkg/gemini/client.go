package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultModel   = "gemini-2.5-flash"
)

// ErrNoAvailableKeys means every key is cooling down, rate limited or
// already tried for this request.
var ErrNoAvailableKeys = errors.New("no gemini api key available")

// Message is one chat turn sent to the model.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

type Options struct {
	BaseURL           string
	Model             string
	Temperature       float64
	Timeout           time.Duration
	RequestsPerMinute int
	FailureThreshold  int
	KeyCooldown       time.Duration
	QuotaCooldown     time.Duration
	MaxRetries        int
	HTTPClient        *http.Client
}

func (o *Options) setDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.RequestsPerMinute <= 0 {
		o.RequestsPerMinute = 60
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
	if o.KeyCooldown <= 0 {
		o.KeyCooldown = 5 * time.Minute
	}
	if o.QuotaCooldown <= 0 {
		o.QuotaCooldown = 10 * time.Minute
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
}

type KeyState struct {
	Key           string
	FailureCount  int
	LastUsed      time.Time
	LastSuccess   time.Time
	CooldownUntil time.Time
	Requests      int

	limiter *rate.Limiter
	client  openai.Client
}

// Client calls Gemini through its OpenAI-compatible endpoint, rotating
// across API keys.
type Client struct {
	keyMu  sync.Mutex
	keys   []*KeyState
	opts   Options
	now    func() time.Time
	logger zerolog.Logger
}

func NewClient(apiKeys []string, opts Options) *Client {
	opts.setDefaults()
	c := &Client{
		opts:   opts,
		now:    time.Now,
		logger: log.With().Str("component", "gemini").Logger(),
	}

	perKey := rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		reqOpts := []option.RequestOption{
			option.WithBaseURL(opts.BaseURL),
			option.WithAPIKey(k),
			// Retries are done here, across keys.
			option.WithMaxRetries(0),
		}
		if opts.HTTPClient != nil {
			reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
		}
		c.keys = append(c.keys, &KeyState{
			Key:     k,
			limiter: rate.NewLimiter(perKey, opts.RequestsPerMinute),
			client:  openai.NewClient(reqOpts...),
		})
	}

	if len(c.keys) == 0 {
		c.logger.Warn().Msg("no Gemini API keys provided")
	} else {
		c.logger.Info().Int("keys", len(c.keys)).Str("model", opts.Model).Msg("gemini client ready")
	}
	return c
}

// getBestKey picks the healthiest usable key not in skip: fewest failures,
// then least recently used. The chosen key's rate limiter is charged.
func (c *Client) getBestKey(skip map[*KeyState]bool) *KeyState {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	now := c.now()
	candidates := make([]*KeyState, 0, len(c.keys))
	for _, k := range c.keys {
		if skip[k] || now.Before(k.CooldownUntil) {
			continue
		}
		candidates = append(candidates, k)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FailureCount != candidates[j].FailureCount {
			return candidates[i].FailureCount < candidates[j].FailureCount
		}
		return candidates[i].LastUsed.Before(candidates[j].LastUsed)
	})

	for _, k := range candidates {
		if k.limiter.AllowN(now, 1) {
			k.LastUsed = now
			k.Requests++
			return k
		}
	}
	return nil
}

func (c *Client) recordSuccess(key *KeyState) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()
	key.LastSuccess = c.now()
	key.FailureCount = 0
}

func (c *Client) recordFailure(key *KeyState, err error) {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	now := c.now()
	key.FailureCount++
	switch {
	case isQuotaError(err):
		key.CooldownUntil = now.Add(c.opts.QuotaCooldown)
		key.FailureCount = 0
		c.logger.Warn().Str("key", maskKey(key.Key)).Dur("cooldown", c.opts.QuotaCooldown).Msg("quota exhausted, cooling key down")
	case key.FailureCount >= c.opts.FailureThreshold:
		key.CooldownUntil = now.Add(c.opts.KeyCooldown)
		key.FailureCount = 0
		c.logger.Warn().Str("key", maskKey(key.Key)).Dur("cooldown", c.opts.KeyCooldown).Msg("too many failures, cooling key down")
	}
}

func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "resource_exhausted")
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "…" + k[len(k)-4:]
}

func toParams(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			out[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			out[i] = openai.AssistantMessage(msg.Content)
		default:
			out[i] = openai.UserMessage(msg.Content)
		}
	}
	return out
}

// Generate returns the model's reply. It tries up to MaxRetries different
// keys, each attempt bounded by Timeout.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.opts.Model),
		Messages:    toParams(messages),
		Temperature: openai.Float(c.opts.Temperature),
	}

	tried := make(map[*KeyState]bool)
	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		key := c.getBestKey(tried)
		if key == nil {
			break
		}
		tried[key] = true

		start := time.Now()
		reply, err := c.complete(ctx, key, params)
		if err != nil {
			c.recordFailure(key, err)
			lastErr = err
			c.logger.Warn().Err(err).Str("key", maskKey(key.Key)).Int("attempt", attempt+1).Msg("completion failed")
			continue
		}
		c.recordSuccess(key)
		c.logger.Debug().Str("key", maskKey(key.Key)).Dur("took", time.Since(start)).Msg("completion ok")
		return reply, nil
	}

	if lastErr == nil {
		return "", ErrNoAvailableKeys
	}
	return "", fmt.Errorf("gemini: %d attempt(s) failed: %w", len(tried), lastErr)
}

func (c *Client) complete(ctx context.Context, key *KeyState, params openai.ChatCompletionNewParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := key.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("empty response")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("empty response")
	}
	return content, nil
}

// KeyStatus describes one key's health without exposing it.
type KeyStatus struct {
	Key           string
	FailureCount  int
	Requests      int
	CoolingDown   bool
	CooldownUntil time.Time
	LastSuccess   time.Time
}

func (c *Client) Status() []KeyStatus {
	c.keyMu.Lock()
	defer c.keyMu.Unlock()

	now := c.now()
	out := make([]KeyStatus, len(c.keys))
	for i, k := range c.keys {
		out[i] = KeyStatus{
			Key:           maskKey(k.Key),
			FailureCount:  k.FailureCount,
			Requests:      k.Requests,
			CoolingDown:   now.Before(k.CooldownUntil),
			CooldownUntil: k.CooldownUntil,
			LastSuccess:   k.LastSuccess,
		}
	}
	return out
}
