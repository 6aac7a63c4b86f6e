package cli

import (
	"fmt"
	"os"

	"github.com/alanmeadows/lit-critic/internal/config"
	"github.com/alanmeadows/lit-critic/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	verbose    bool
	configPath string
	projectDir string
	appConfig  *config.Config
	rootCmd    = &cobra.Command{
		Use:   "lit-critic",
		Short: "Interactive multi-lens editorial review for fiction manuscripts",
		Long: `lit-critic runs an LLM-driven editorial review pipeline over fiction
scenes: six critique lenses fan out in parallel, coordinator passes
deduplicate and rank the findings, and an interactive discussion loop lets
the author push back, accept, or revise before a finding is considered
settled.

Run 'lit-critic <command> --help' for details on any subcommand.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file override")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", ".", "Project directory to review")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose)
		if configPath != "" {
			os.Setenv("USER_CONFIG_PATH", configPath)
		}
		cfg, err := config.Load(projectDir)
		if err != nil {
			return err
		}
		appConfig = cfg
		return nil
	}

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(learningCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = false
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	return err
}
