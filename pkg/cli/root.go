// Package cli implements tsunctl, an admin CLI over the bot's database.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"tsunbot/pkg/config"
	"tsunbot/pkg/storage"
)

type options struct {
	dbPath     string
	configPath string
	format     string
}

// NewRootCmd builds the tsunctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "tsunctl",
		Short:        "Inspect and manage the bot's reminders, relationships, facts and mood",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "Database path (default: $DATABASE_PATH or storage.path from config.yml)")
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yml", "Path to config.yml")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "Output format: json or text")

	root.AddCommand(
		newRemindersCmd(opts),
		newRelationshipCmd(opts),
		newFactsCmd(opts),
		newMoodCmd(opts),
	)
	return root
}

func (o *options) loadConfig() (*config.Config, error) {
	_ = godotenv.Load()
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.LoadSecrets(); err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		cfg.Storage.Path = o.dbPath
	}
	return cfg, nil
}

func (o *options) openStore() (*storage.SQLiteStore, *config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return s, cfg, nil
}

// output writes v as indented JSON, or calls text for the text format.
func (o *options) output(w io.Writer, v any, text func(io.Writer)) error {
	switch o.format {
	case "json":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(b))
	case "text":
		text(w)
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}
	return nil
}
