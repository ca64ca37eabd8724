package cli

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"tsunbot/pkg/personality"
	"tsunbot/pkg/relationship"
)

func newRelationshipCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relationship",
		Short: "Inspect relationship levels",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show one user's relationship in a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			guild, _ := cmd.Flags().GetString("guild")

			s, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			rel, err := relationship.NewTracker(s).Get(cmd.Context(), user, guild)
			if err != nil {
				return fmt.Errorf("get relationship: %w", err)
			}
			return opts.output(cmd.OutOrStdout(), rel, func(w io.Writer) {
				fmt.Fprintf(w, "%s\tlevel=%d\ttier=%s\tinteractions=%d\n",
					rel.UserID, rel.Level, relationship.LevelName(rel.Level), rel.InteractionCount)
			})
		},
	}
	get.Flags().StringP("user", "u", "", "Discord user id (required)")
	get.Flags().StringP("guild", "g", "", "Guild id (empty for DMs)")
	get.MarkFlagRequired("user")

	top := &cobra.Command{
		Use:   "top",
		Short: "List the closest users in a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			guild, _ := cmd.Flags().GetString("guild")
			limit, _ := cmd.Flags().GetInt("limit")

			s, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := relationship.NewTracker(s).Top(cmd.Context(), guild, limit)
			if err != nil {
				return fmt.Errorf("top relationships: %w", err)
			}
			return opts.output(cmd.OutOrStdout(), list, func(w io.Writer) {
				for i, rel := range list {
					fmt.Fprintf(w, "%d. %s\tlevel=%d\ttier=%s\n", i+1, rel.UserID, rel.Level, relationship.LevelName(rel.Level))
				}
			})
		},
	}
	top.Flags().StringP("guild", "g", "", "Guild id (empty for DMs)")
	top.Flags().IntP("limit", "l", 10, "Max results")

	cmd.AddCommand(get, top)
	return cmd
}

func newFactsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "facts",
		Short: "Inspect taught facts",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the facts of a guild",
		RunE: func(cmd *cobra.Command, args []string) error {
			guild, _ := cmd.Flags().GetString("guild")

			s, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			facts, err := s.ListFacts(cmd.Context(), guild)
			if err != nil {
				return fmt.Errorf("list facts: %w", err)
			}
			return opts.output(cmd.OutOrStdout(), facts, func(w io.Writer) {
				if len(facts) == 0 {
					fmt.Fprintln(w, "no facts")
				}
				for _, f := range facts {
					fmt.Fprintf(w, "%s\t%s\t(by %s)\n", f.Key, f.Content, f.CreatedBy)
				}
			})
		},
	}
	list.Flags().StringP("guild", "g", "", "Guild id (empty for DMs)")

	cmd.AddCommand(list)
	return cmd
}

func newMoodCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mood",
		Short: "Show a guild's personality state",
		RunE: func(cmd *cobra.Command, args []string) error {
			guild, _ := cmd.Flags().GetString("guild")

			s, cfg, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ptype, err := personality.ParseType(cfg.Personality.Type)
			if err != nil {
				return err
			}
			reg := personality.NewRegistry(s, ptype, personality.DecayConfig{
				Step:   cfg.Personality.DecayStep,
				Period: cfg.DecayInterval(),
			})
			st, err := reg.Get(cmd.Context(), guild)
			if err != nil {
				return fmt.Errorf("load personality: %w", err)
			}
			snap := st.Snapshot()
			return opts.output(cmd.OutOrStdout(), snap, func(w io.Writer) {
				fmt.Fprintf(w, "guild=%q\ttype=%s\tmood=%d (%s)\n", snap.GuildID, snap.Type, snap.Mood, snap.MoodState)
				for _, name := range sortedKeys(snap.Traits) {
					fmt.Fprintf(w, "  %s=%d\n", name, snap.Traits[name])
				}
			})
		},
	}
	cmd.Flags().StringP("guild", "g", "", "Guild id (empty for DMs)")
	return cmd
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
