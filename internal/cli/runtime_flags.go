package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/analysis-worker/internal/config"
)

// runtimeFlagSet tracks shared process/init/doctor flags before they are converted into config overrides.
type runtimeFlagSet struct {
	analysisPath  string
	confDir       string
	signaturesDir string
	workers       int
	pluginTimeout time.Duration
	disabled      string
	reportFile    string
	metricsFile   string
	logFormat     string
	logLevel      string
}

func bindRuntimeFlags(cmd *cobra.Command, flags *runtimeFlagSet) {
	cmd.Flags().StringVar(&flags.analysisPath, "analysis", "", "Path to the analysis folder to process")
	cmd.Flags().StringVar(&flags.confDir, "conf-dir", "", "Directory holding per-plugin configuration files")
	cmd.Flags().StringVar(&flags.signaturesDir, "signatures-dir", "", "Directory holding YAML signature rules")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, fmt.Sprintf("Plugins run concurrently per stage (1-%d)", config.MaxWorkers))
	cmd.Flags().DurationVar(&flags.pluginTimeout, "plugin-timeout", 0, "Per-plugin time limit, 0 disables it")
	cmd.Flags().StringVar(&flags.disabled, "disabled", "", "Comma-separated plugin names to skip")
	cmd.Flags().StringVar(&flags.reportFile, "report-file", "", "Report output path (default <analysis>/reports/report.json)")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Optional Prometheus textfile output path")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format: console or json")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func (f runtimeFlagSet) toOverrides(cmd *cobra.Command) config.Overrides {
	ov := config.Overrides{}
	if cmd.Flags().Changed("analysis") {
		ov.AnalysisPath = f.analysisPath
	}

	if cmd.Flags().Changed("conf-dir") {
		ov.ConfDir = f.confDir
	}

	if cmd.Flags().Changed("signatures-dir") {
		ov.SignaturesDir = f.signaturesDir
	}

	if cmd.Flags().Changed("workers") {
		ov.Workers = f.workers
		ov.WorkersSet = true
	}

	if cmd.Flags().Changed("plugin-timeout") {
		ov.PluginTimeout = f.pluginTimeout
		ov.PluginTimeoutSet = true
	}

	if cmd.Flags().Changed("disabled") {
		ov.Disabled = config.ParseList(f.disabled)
	}

	if cmd.Flags().Changed("report-file") {
		ov.ReportFile = f.reportFile
	}

	if cmd.Flags().Changed("metrics-file") {
		ov.MetricsFile = f.metricsFile
	}

	if cmd.Flags().Changed("log-format") {
		ov.LogFormat = f.logFormat
	}

	if cmd.Flags().Changed("log-level") {
		ov.LogLevel = f.logLevel
	}

	return ov
}
