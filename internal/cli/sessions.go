package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage review sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every review session for this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()

		sessions, err := facade.ListSessions()
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d accepted / %d total\n", s.ID, s.Status, s.Counters.Accepted, s.Counters.Total)
		}
		return nil
	},
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show every finding in a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()

		sess, err := facade.GetSession(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s)\n", sess.ID, sess.Status)
		for _, f := range sess.Findings {
			fmt.Fprintf(cmd.OutOrStdout(), "  #%d [%s/%s] %s — %s\n", f.Number, f.Severity, f.Lens, f.Status, f.Location)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a session and its findings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()

		if err := facade.DeleteSession(id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted session %d\n", id)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsViewCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
