package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tsunbot/pkg/storage"
)

func newRemindersCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Inspect and cancel reminders",
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List every reminder that is due and unsent",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := s.PendingReminders(cmd.Context(), time.Now())
			if err != nil {
				return fmt.Errorf("pending reminders: %w", err)
			}
			return opts.output(cmd.OutOrStdout(), list, func(w io.Writer) { printReminders(w, list) })
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			all, _ := cmd.Flags().GetBool("all")

			s, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			list, err := s.UserReminders(cmd.Context(), user, all)
			if err != nil {
				return fmt.Errorf("list reminders: %w", err)
			}
			return opts.output(cmd.OutOrStdout(), list, func(w io.Writer) { printReminders(w, list) })
		},
	}
	list.Flags().StringP("user", "u", "", "Discord user id (required)")
	list.Flags().Bool("all", false, "Include reminders already sent")
	list.MarkFlagRequired("user")

	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Delete an unsent reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid reminder id %q", args[0])
			}

			s, _, err := opts.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			ok, err := s.DeleteReminder(cmd.Context(), id, user)
			if err != nil {
				return fmt.Errorf("cancel reminder: %w", err)
			}
			if !ok {
				return fmt.Errorf("no unsent reminder %d for user %s", id, user)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancelled reminder %d\n", id)
			return nil
		},
	}
	cancel.Flags().StringP("user", "u", "", "Owner's Discord user id (required)")
	cancel.MarkFlagRequired("user")

	cmd.AddCommand(pending, list, cancel)
	return cmd
}

func printReminders(w io.Writer, list []storage.Reminder) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no reminders")
		return
	}
	for _, r := range list {
		status := "pending"
		if r.Sent {
			status = "sent"
		}
		fmt.Fprintf(w, "#%d\t%s\t%s\tuser=%s\t%s", r.ID, r.ScheduledTime.Format(time.RFC3339), status, r.UserID, r.Message)
		if r.Recurrence != "" {
			fmt.Fprintf(w, "\t(%s)", r.Recurrence)
		}
		fmt.Fprintln(w)
	}
}
