package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"tsunbot/pkg/bot"
	"tsunbot/pkg/cache"
	"tsunbot/pkg/config"
	"tsunbot/pkg/games"
	"tsunbot/pkg/gemini"
	"tsunbot/pkg/logging"
	"tsunbot/pkg/persona"
	"tsunbot/pkg/personality"
	"tsunbot/pkg/relationship"
	"tsunbot/pkg/reminder"
	"tsunbot/pkg/search"
	"tsunbot/pkg/storage"
	"tsunbot/pkg/utilities"
)

// exitRestart asks the process supervisor to start the bot again.
const exitRestart = 3

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env for secrets
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return 1
	}
	if err := cfg.LoadSecrets(); err != nil {
		log.Error().Err(err).Msg("failed to read environment")
		return 1
	}

	closer := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if closer != nil {
		defer closer.Close()
	}
	if envErr != nil {
		log.Info().Msg("no .env file found, relying on environment variables")
	}

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 1
	}

	sqlStore, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open database")
		return 1
	}
	defer sqlStore.Close()

	var store bot.Store = sqlStore
	if cfg.Secrets.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Secrets.RedisURL, "tsunbot")
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, serving history from sqlite only")
		} else {
			defer redisCache.Close()
			store = storage.NewCachedStore(sqlStore, redisCache)
			log.Info().Msg("conversation cache enabled")
		}
	}

	aiClient := gemini.NewClient(cfg.GeminiKeys(), gemini.Options{
		BaseURL:           cfg.AI.BaseURL,
		Model:             cfg.AI.Model,
		Temperature:       cfg.AI.Temperature,
		Timeout:           cfg.AITimeout(),
		RequestsPerMinute: cfg.AI.RequestsPerMinutePerKey,
		KeyCooldown:       minutes(cfg.AI.KeyCooldownMinutes),
		QuotaCooldown:     minutes(cfg.AI.QuotaCooldownMinutes),
		MaxRetries:        cfg.AI.MaxRetries,
	})
	log.Info().Int("keys", len(cfg.GeminiKeys())).Str("model", cfg.AI.Model).Msg("gemini client initialized")

	card, err := persona.Load(cfg.Persona.CardPath, cfg.Bot.Prefix)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.Persona.CardPath).Msg("failed to load persona card")
		return 1
	}

	ptype, err := personality.ParseType(cfg.Personality.Type)
	if err != nil {
		log.Error().Err(err).Msg("invalid personality type")
		return 1
	}
	moods := personality.NewRegistry(sqlStore, ptype, personality.DecayConfig{
		Step:   cfg.Personality.DecayStep,
		Period: cfg.DecayInterval(),
	})

	scheduler := reminder.NewScheduler(sqlStore, reminder.Config{
		PollInterval: cfg.ReminderPollInterval(),
		RetryDelay:   cfg.ReminderRetryDelay(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := bot.NewHandler(bot.Deps{
		Context:       ctx,
		Config:        cfg,
		AI:            aiClient,
		Store:         store,
		Persona:       card,
		Personality:   moods,
		Relationships: relationship.NewTracker(sqlStore),
		Reminders:     scheduler,
		Games: games.NewManager(games.Config{
			GuessMax:     cfg.Games.GuessMax,
			TriviaWindow: seconds(cfg.Games.TriviaTimeoutSeconds),
			FastAnswer:   seconds(cfg.Games.FastAnswerSeconds),
		}),
		Fetcher:  utilities.NewClient(cfg.Secrets.WeatherAPIKey, utilities.DefaultEndpoints, nil),
		Searcher: search.NewClient(search.Options{}),
	})

	dg, err := discordgo.New("Bot " + cfg.Secrets.DiscordToken)
	if err != nil {
		log.Error().Err(err).Msg("error creating discord session")
		return 1
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	dg.AddHandler(handler.MessageCreate)
	dg.AddHandler(handler.InteractionCreate)
	dg.AddHandler(handler.Ready)

	if err := dg.Open(); err != nil {
		log.Error().Err(err).Msg("error opening connection")
		return 1
	}
	defer dg.Close()

	// Set Bot ID in handler (so it can ignore itself)
	handler.SetBotID(dg.State.User.ID)
	handler.SetSession(&bot.DiscordSession{Session: dg})
	scheduler.SetDeliverer(handler)

	// Empty guild ID registers globally; a dev guild gets instant updates.
	guildID := cfg.Secrets.DiscordGuildID
	registered, err := bot.RegisterSlashCommands(dg, guildID)
	if err != nil {
		log.Error().Err(err).Msg("error registering slash commands")
		return 1
	}

	restart := false
	handler.SetExitFunc(func(r bool) {
		restart = r
		stop()
	})

	handler.Start(ctx)
	log.Info().Str("name", card.Name()).Msg("bot is now running, press CTRL-C to exit")

	<-ctx.Done()
	log.Info().Bool("restart", restart).Msg("shutting down")

	handler.Wait()
	if err := bot.UnregisterSlashCommands(dg, guildID, registered); err != nil {
		log.Warn().Err(err).Msg("error unregistering slash commands")
	}

	if restart {
		return exitRestart
	}
	return 0
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
