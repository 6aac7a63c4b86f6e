package cli

import (
	"fmt"
	"io"

	"github.com/alanmeadows/lit-critic/internal/domain"
	"github.com/spf13/cobra"
)

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "Inspect and manage the project's cross-session learning record",
}

var learningViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the current learning working lists",
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()

		l, err := facade.Learning()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		printEntries(out, "Preferences", l.Preferences)
		printEntries(out, "Blind Spots", l.BlindSpots)
		printEntries(out, "Resolutions", l.Resolutions)
		printEntries(out, "Ambiguity (intentional)", l.AmbiguityIntentional)
		printEntries(out, "Ambiguity (accidental)", l.AmbiguityAccidental)
		fmt.Fprintf(out, "Review count: %d\n", l.ReviewCount)
		return nil
	},
}

var learningExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Re-render LEARNING.md from the durable store",
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()
		if err := facade.ExportLearning(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "exported LEARNING.md")
		return nil
	},
}

var learningResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every learning entry and review count",
	RunE: func(cmd *cobra.Command, args []string) error {
		facade, err := newFacade(projectDir, appConfig)
		if err != nil {
			return err
		}
		defer facade.Close()
		if err := facade.ResetLearning(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "learning reset")
		return nil
	},
}

func printEntries(out io.Writer, heading string, entries []domain.LearningEntry) {
	fmt.Fprintf(out, "%s:\n", heading)
	for _, e := range entries {
		fmt.Fprintf(out, "  - %s\n", e.Description)
	}
}

func init() {
	learningCmd.AddCommand(learningViewCmd)
	learningCmd.AddCommand(learningExportCmd)
	learningCmd.AddCommand(learningResetCmd)
}
