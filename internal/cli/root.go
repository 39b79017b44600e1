package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/analysis-worker/internal/config"
	"github.com/example/analysis-worker/internal/version"
)

// Execute builds the root command tree and runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	loader := &config.Loader{ConfigPath: config.DefaultConfigPath}
	rootOpts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "analysis-worker",
		Short:         "Run processing modules and signatures over a finished analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version,
	}
	rootCmd.SetVersionTemplate("analysis-worker version {{.Version}} (" + version.CommitHash + ")\n")

	rootCmd.PersistentFlags().StringVar(&rootOpts.ConfigPath, "config", config.DefaultConfigPath, "Path to worker.config.yml (optional)")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if rootOpts.ConfigPath != "" {
			loader.ConfigPath = rootOpts.ConfigPath
		}
	}

	rootCmd.AddCommand(
		newInitCmd(loader),
		newProcessCmd(loader),
		newPluginsCmd(loader),
		newReportCmd(),
		newDoctorCmd(loader),
	)

	return rootCmd
}

type rootOptions struct {
	ConfigPath string
}
