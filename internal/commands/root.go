package commands

import (
	"github.com/spf13/cobra"

	"github.com/cleared-dev/finqa/internal/buildinfo"
	"github.com/cleared-dev/finqa/internal/config"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "finqa",
		Short:   "Ask questions about monthly financial data",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "init" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", config.FileName, "path to finqa.yaml")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory holding the CSV tables (overrides data.dir)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")

	rootCmd.AddCommand(
		newInitCommand(),
		newAskCommand(a),
		newExploreCommand(a),
		newExtractCommand(a),
		newCheckCommand(a),
		newTraceCommand(a),
		newServeCommand(a),
	)

	return rootCmd
}
