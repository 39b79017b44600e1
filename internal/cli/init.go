package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/analysis-worker/internal/config"
)

func newInitCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}
	var requireSignatures bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Validate the execution environment and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			if info, err := os.Stat(cfg.AnalysisPath); err != nil || !info.IsDir() {
				return fmt.Errorf("analysis path %s is not a directory", cfg.AnalysisPath)
			}

			if requireSignatures {
				if info, err := os.Stat(cfg.SignaturesDir); err != nil || !info.IsDir() {
					return fmt.Errorf("signatures directory %s not found", cfg.SignaturesDir)
				}
			}

			if err := ensureOutputDir(dirOfReport(cfg)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Environment looks good. Report will be written to %s\n", cfg.ReportPath())
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)
	cmd.Flags().BoolVar(&requireSignatures, "require-signatures", false, "Fail when the signatures directory is missing")

	return cmd
}
