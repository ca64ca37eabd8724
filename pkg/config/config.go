package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables read from config.yml.
type Config struct {
	Bot struct {
		Prefix string `yaml:"prefix"`
		Status string `yaml:"status"`
	} `yaml:"bot"`
	AI struct {
		Model                   string  `yaml:"model"`
		BaseURL                 string  `yaml:"base_url"`
		Temperature             float64 `yaml:"temperature"`
		TimeoutSeconds          int     `yaml:"timeout_seconds"`
		HistoryLength           int     `yaml:"history_length"`
		RequestsPerMinutePerKey int     `yaml:"requests_per_minute_per_key"`
		KeyCooldownMinutes      int     `yaml:"key_cooldown_minutes"`
		QuotaCooldownMinutes    int     `yaml:"quota_cooldown_minutes"`
		MaxRetries              int     `yaml:"max_retries"`
	} `yaml:"ai"`
	RateLimit struct {
		WindowSeconds int `yaml:"window_seconds"`
		MaxRequests   int `yaml:"max_requests"`
	} `yaml:"rate_limit"`
	Reminders struct {
		PollIntervalSeconds int `yaml:"poll_interval_seconds"`
		RetryDelayMinutes   int `yaml:"retry_delay_minutes"`
	} `yaml:"reminders"`
	Subscriptions struct {
		CheckIntervalMinutes int `yaml:"check_interval_minutes"`
	} `yaml:"subscriptions"`
	Personality struct {
		Type                 string `yaml:"type"`
		DecayStep            int    `yaml:"decay_step"`
		DecayIntervalMinutes int    `yaml:"decay_interval_minutes"`
	} `yaml:"personality"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Persona struct {
		CardPath string `yaml:"card_path"`
	} `yaml:"persona"`
	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
	} `yaml:"logging"`
	Games struct {
		TriviaTimeoutSeconds int `yaml:"trivia_timeout_seconds"`
		FastAnswerSeconds    int `yaml:"fast_answer_seconds"`
		GuessMax             int `yaml:"guess_max"`
	} `yaml:"games"`

	Secrets Secrets `yaml:"-"`
}

// Secrets come from the environment (and .env), never from config.yml.
type Secrets struct {
	DiscordToken   string   `env:"DISCORD_TOKEN"`
	GeminiAPIKey   string   `env:"GEMINI_API_KEY"`
	GeminiAPIKeys  []string `env:"GEMINI_API_KEYS" envSeparator:","`
	WeatherAPIKey  string   `env:"WEATHER_API_KEY"`
	RedisURL       string   `env:"REDIS_URL"`
	DiscordGuildID string   `env:"DISCORD_GUILD_ID"`
	AdminUserIDs   []string `env:"ADMIN_USER_IDS" envSeparator:","`
	DatabasePath   string   `env:"DATABASE_PATH"`
}

// Defaults returns a config with every tunable set.
func Defaults() *Config {
	c := &Config{}
	c.Bot.Prefix = "!"
	c.Bot.Status = "not waiting for you or anything"
	c.AI.Model = "gemini-2.5-flash"
	c.AI.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	c.AI.Temperature = 0.9
	c.AI.TimeoutSeconds = 30
	c.AI.HistoryLength = 10
	c.AI.RequestsPerMinutePerKey = 60
	c.AI.KeyCooldownMinutes = 5
	c.AI.QuotaCooldownMinutes = 10
	c.AI.MaxRetries = 3
	c.RateLimit.WindowSeconds = 10
	c.RateLimit.MaxRequests = 3
	c.Reminders.PollIntervalSeconds = 60
	c.Reminders.RetryDelayMinutes = 60
	c.Subscriptions.CheckIntervalMinutes = 60
	c.Personality.Type = "tsundere"
	c.Personality.DecayStep = 5
	c.Personality.DecayIntervalMinutes = 10
	c.Storage.Path = "data/tsunbot.db"
	c.Persona.CardPath = "persona_card.json"
	c.Logging.Level = "info"
	c.Logging.MaxSizeMB = 10
	c.Logging.MaxBackups = 3
	c.Logging.MaxAgeDays = 28
	c.Games.TriviaTimeoutSeconds = 30
	c.Games.FastAnswerSeconds = 5
	c.Games.GuessMax = 100
	return c
}

// LoadConfig reads config.yml. A missing file yields the defaults, and any
// key absent from the file keeps its default.
func LoadConfig(path string) (*Config, error) {
	config := Defaults()

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return config, nil
}

// LoadSecrets fills c.Secrets from the environment.
func (c *Config) LoadSecrets() error {
	var s Secrets
	if err := env.Parse(&s); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	c.Secrets = s
	if s.DatabasePath != "" {
		c.Storage.Path = s.DatabasePath
	}
	return nil
}

// GeminiKeys returns every configured Gemini key without duplicates:
// GEMINI_API_KEY, then GEMINI_API_KEY_2..N in numeric order, then GEMINI_API_KEYS.
func (c *Config) GeminiKeys() []string {
	var keys []string
	seen := map[string]bool{}
	add := func(k string) {
		k = strings.TrimSpace(k)
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	add(c.Secrets.GeminiAPIKey)

	type numbered struct {
		n   int
		key string
	}
	var extra []numbered
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "GEMINI_API_KEY_") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "GEMINI_API_KEY_"))
		if err != nil {
			continue
		}
		extra = append(extra, numbered{n, value})
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].n < extra[j].n })
	for _, e := range extra {
		add(e.key)
	}

	for _, k := range c.Secrets.GeminiAPIKeys {
		add(k)
	}
	return keys
}

// IsAdmin reports whether userID is listed in ADMIN_USER_IDS.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Secrets.AdminUserIDs {
		if strings.TrimSpace(id) == userID {
			return true
		}
	}
	return false
}

// Validate reports every missing secret and non-positive tunable at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Secrets.DiscordToken == "" {
		errs = append(errs, errors.New("missing required environment variable: DISCORD_TOKEN"))
	}
	if len(c.GeminiKeys()) == 0 {
		errs = append(errs, errors.New("missing required environment variable: GEMINI_API_KEY"))
	}
	if c.Bot.Prefix == "" {
		errs = append(errs, errors.New("bot.prefix must not be empty"))
	}

	positive := map[string]int{
		"ai.timeout_seconds":                   c.AI.TimeoutSeconds,
		"ai.history_length":                    c.AI.HistoryLength,
		"ai.requests_per_minute_per_key":       c.AI.RequestsPerMinutePerKey,
		"ai.max_retries":                       c.AI.MaxRetries,
		"rate_limit.window_seconds":            c.RateLimit.WindowSeconds,
		"rate_limit.max_requests":              c.RateLimit.MaxRequests,
		"reminders.poll_interval_seconds":      c.Reminders.PollIntervalSeconds,
		"reminders.retry_delay_minutes":        c.Reminders.RetryDelayMinutes,
		"subscriptions.check_interval_minutes": c.Subscriptions.CheckIntervalMinutes,
		"personality.decay_step":               c.Personality.DecayStep,
		"personality.decay_interval_minutes":   c.Personality.DecayIntervalMinutes,
		"games.fast_answer_seconds":            c.Games.FastAnswerSeconds,
		"games.trivia_timeout_seconds":         c.Games.TriviaTimeoutSeconds,
		"games.guess_max":                      c.Games.GuessMax,
	}
	names := make([]string, 0, len(positive))
	for name := range positive {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, positive[name]))
		}
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		errs = append(errs, fmt.Errorf("ai.temperature must be within [0,2], got %v", c.AI.Temperature))
	}
	return errors.Join(errs...)
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func (c *Config) ReminderPollInterval() time.Duration {
	return time.Duration(c.Reminders.PollIntervalSeconds) * time.Second
}

func (c *Config) ReminderRetryDelay() time.Duration {
	return time.Duration(c.Reminders.RetryDelayMinutes) * time.Minute
}

func (c *Config) SubscriptionInterval() time.Duration {
	return time.Duration(c.Subscriptions.CheckIntervalMinutes) * time.Minute
}

func (c *Config) DecayInterval() time.Duration {
	return time.Duration(c.Personality.DecayIntervalMinutes) * time.Minute
}
