package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/example/analysis-worker/internal/config"
	"github.com/example/analysis-worker/internal/modules/signatures"
	"github.com/example/analysis-worker/internal/plugin"
	"github.com/example/analysis-worker/internal/version"
)

type doctorCheck struct {
	Name   string
	Status string // "✓", "✗" or "⊘"
	Detail string
	Error  error
}

func newDoctorCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate configuration, plugin configuration and signature rules",
		Long: `The doctor subcommand performs comprehensive validation of the worker environment:
- Go runtime version
- Configuration validity
- Analysis folder presence
- Plugin configuration directory
- Signature rules, including rules that would be skipped
- Report directory writability`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			cfg, err := loader.Load(overrides)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			checks := runDoctorChecks(&cfg)
			printDoctorReport(cmd, checks)

			for _, check := range checks {
				if check.Error != nil {
					return fmt.Errorf("doctor checks failed")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "\n✓ All checks passed. System is ready.")
			return nil
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}

func runDoctorChecks(cfg *config.RuntimeConfig) []doctorCheck {
	checks := []doctorCheck{
		checkGoVersion(),
		checkConfiguration(cfg),
	}

	if cfg.AnalysisPath != "" {
		checks = append(checks, checkAnalysisPath(cfg.AnalysisPath))
	}

	checks = append(checks, checkConfDir(cfg.ConfDir))
	checks = append(checks, checkSignatures(cfg.SignaturesDir)...)

	if cfg.AnalysisPath != "" || cfg.ReportFile != "" {
		checks = append(checks, checkOutputDirectory(dirOfReport(*cfg)))
	}

	return checks
}

func checkGoVersion() doctorCheck {
	return doctorCheck{
		Name:   "Go Runtime",
		Status: "✓",
		Detail: fmt.Sprintf("Version %s, worker %s", runtime.Version(), version.Version),
	}
}

func checkConfiguration(cfg *config.RuntimeConfig) doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "Configuration",
			Status: "✗",
			Detail: "Invalid configuration",
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Configuration",
		Status: "✓",
		Detail: fmt.Sprintf("workers=%d, timeout=%s", cfg.Workers, cfg.PluginTimeout),
	}
}

func checkAnalysisPath(path string) doctorCheck {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", path)
	}
	if err != nil {
		return doctorCheck{Name: "Analysis Folder", Status: "✗", Detail: path, Error: err}
	}
	return doctorCheck{Name: "Analysis Folder", Status: "✓", Detail: path}
}

func checkConfDir(dir string) doctorCheck {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return doctorCheck{
			Name:   "Plugin Config",
			Status: "⊘",
			Detail: fmt.Sprintf("%s not found, plugins use defaults", dir),
		}
	}
	return doctorCheck{Name: "Plugin Config", Status: "✓", Detail: dir}
}

func checkSignatures(dir string) []doctorCheck {
	res, err := signatures.LoadDir(plugin.NewRegistry(), dir, version.Version)
	if err != nil {
		return []doctorCheck{{
			Name:   "Signatures",
			Status: "⊘",
			Detail: fmt.Sprintf("%s unavailable, signature stage will be empty", dir),
		}}
	}

	checks := []doctorCheck{{
		Name:   "Signatures",
		Status: "✓",
		Detail: fmt.Sprintf("%d loaded, %d namespaces, %d skipped", len(res.Loaded), len(res.Namespaces), len(res.Skipped)),
	}}
	for _, s := range res.Skipped {
		name := s.File
		if s.Rule != "" {
			name += ":" + s.Rule
		}
		checks = append(checks, doctorCheck{
			Name:   fmt.Sprintf("Rule %s", name),
			Status: "⊘",
			Detail: s.Reason,
		})
	}
	return checks
}

func checkOutputDirectory(outputDir string) doctorCheck {
	err := ensureOutputDir(outputDir)
	if err != nil {
		return doctorCheck{
			Name:   "Report Directory",
			Status: "✗",
			Detail: outputDir,
			Error:  err,
		}
	}

	return doctorCheck{
		Name:   "Report Directory",
		Status: "✓",
		Detail: outputDir,
	}
}

func printDoctorReport(cmd *cobra.Command, checks []doctorCheck) {
	fmt.Fprintln(cmd.OutOrStdout(), "Running environment diagnostics...")

	for _, check := range checks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %-30s %s\n", check.Status, check.Name+":", check.Detail)
		if check.Error != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "   Error: %v\n", check.Error)
		}
	}
}
