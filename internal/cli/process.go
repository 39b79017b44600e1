package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/analysis-worker/internal/config"
	"github.com/example/analysis-worker/internal/events"
	"github.com/example/analysis-worker/internal/logging"
	"github.com/example/analysis-worker/internal/metrics"
	"github.com/example/analysis-worker/internal/processor"
)

const pluginEnvPrefix = "WORKER"

func newProcessCmd(loader *config.Loader) *cobra.Command {
	flags := &runtimeFlagSet{}

	cmd := &cobra.Command{
		Use:   "process [analysis-path]",
		Short: "Run processing modules and signatures over an analysis folder",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := flags.toOverrides(cmd)
			if len(args) == 1 {
				overrides.AnalysisPath = args[0]
			}

			cfg, err := loader.Load(overrides)
			if err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			reg, loaded, err := buildRegistry(cfg, logger)
			if err != nil {
				return err
			}

			promReg := prometheus.NewRegistry()
			m, err := metrics.New(promReg)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			logger = logger.With(zap.String("run_id", runID))
			emitter := events.NewEmitter(cmd.OutOrStdout()).WithRunID(runID)
			if err := emitter.Emit(events.Event{Type: events.TypeRunStart, Message: "Processing analysis", Fields: map[string]interface{}{
				"analysis":   cfg.AnalysisPath,
				"processing": len(reg.Processing()),
				"signatures": len(loaded.Loaded),
				"workers":    cfg.Workers,
			}}); err != nil {
				return err
			}

			proc := processor.New(reg,
				processor.WithLogger(logger),
				processor.WithMetrics(m),
				processor.WithConfigLoader(config.PluginConfigLoader{Dir: cfg.ConfDir, EnvPrefix: pluginEnvPrefix}),
				processor.WithWorkers(cfg.Workers),
				processor.WithPluginTimeout(cfg.PluginTimeout),
			)

			report, err := proc.Run(cmd.Context(), cfg.AnalysisPath)
			if err != nil {
				return err
			}

			matches := report.Signatures()
			if err := emitter.Emit(events.Event{Type: events.TypeStageFinished, Fields: map[string]interface{}{
				"results": len(report) - 1,
				"matches": len(matches),
			}}); err != nil {
				return err
			}

			reportPath := cfg.ReportPath()
			if err := writeJSONFile(reportPath, report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if err := emitter.Emit(events.Event{Type: events.TypeReportWritten, Fields: map[string]interface{}{"path": reportPath}}); err != nil {
				return err
			}

			if cfg.MetricsFile != "" {
				if err := ensureOutputDir(filepath.Dir(cfg.MetricsFile)); err != nil {
					return err
				}
				if err := metrics.WriteTextfile(cfg.MetricsFile, promReg); err != nil {
					return fmt.Errorf("write metrics: %w", err)
				}
			}

			logger.Info("analysis processed",
				zap.String("analysis", cfg.AnalysisPath),
				zap.Int("matches", len(matches)))

			return emitter.Emit(events.Event{Type: events.TypeRunFinished, Message: "Processing complete", Fields: map[string]interface{}{"matches": len(matches)}})
		},
	}

	bindRuntimeFlags(cmd, flags)

	return cmd
}
