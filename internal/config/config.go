package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "worker.config.yml"

	// MaxWorkers bounds how many plugins of a stage may run at once.
	MaxWorkers = 64

	envAnalysisPath  = "WORKER_ANALYSIS_PATH"
	envConfDir       = "WORKER_CONF_DIR"
	envSignaturesDir = "WORKER_SIGNATURES_DIR"
	envWorkers       = "WORKER_WORKERS"
	envPluginTimeout = "WORKER_PLUGIN_TIMEOUT"
	envDisabled      = "WORKER_DISABLED"
	envReportFile    = "WORKER_REPORT_FILE"
	envMetricsFile   = "WORKER_METRICS_FILE"
	envLogFormat     = "WORKER_LOG_FORMAT"
	envLogLevel      = "WORKER_LOG_LEVEL"
)

// Loader merges configuration coming from files, environment variables, and CLI flags.
type Loader struct {
	ConfigPath string
}

// RuntimeConfig contains the fully merged settings required by worker sub-commands.
type RuntimeConfig struct {
	AnalysisPath  string
	ConfDir       string
	SignaturesDir string
	Workers       int
	PluginTimeout time.Duration
	Disabled      []string
	ReportFile    string
	MetricsFile   string
	LogFormat     string
	LogLevel      string
}

// Overrides captures values coming from env vars or CLI flags.
type Overrides struct {
	AnalysisPath     string
	ConfDir          string
	SignaturesDir    string
	Workers          int
	WorkersSet       bool
	PluginTimeout    time.Duration
	PluginTimeoutSet bool
	Disabled         []string
	ReportFile       string
	MetricsFile      string
	LogFormat        string
	LogLevel         string
}

// DefaultRuntimeConfig returns the baseline configuration when no overrides are provided.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		ConfDir:       "conf",
		SignaturesDir: "signatures",
		Workers:       1,
		LogFormat:     "console",
		LogLevel:      "info",
	}
}

// Load resolves the final runtime configuration.
func (l Loader) Load(override Overrides) (RuntimeConfig, error) {
	cfg := DefaultRuntimeConfig()
	path := l.ConfigPath
	if path == "" {
		path = DefaultConfigPath
	}

	if fileExists(path) {
		fileOv, err := loadFromFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "load %s", path)
		}
		cfg.apply(fileOv)
	}

	cfg.apply(overridesFromEnv())
	cfg.apply(override)

	return cfg, nil
}

// Validate ensures the config contains the minimum required data for the pipeline.
func (c RuntimeConfig) Validate() error {
	if strings.TrimSpace(c.AnalysisPath) == "" {
		return errors.New("no analysis path configured; provide --analysis or set " + envAnalysisPath)
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d (got %d)", MaxWorkers, c.Workers)
	}

	if c.PluginTimeout < 0 {
		return fmt.Errorf("plugin timeout cannot be negative (got %s)", c.PluginTimeout)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	return nil
}

// ReportPath is where the process command writes the report.
func (c RuntimeConfig) ReportPath() string {
	if c.ReportFile != "" {
		return c.ReportFile
	}
	return filepath.Join(c.AnalysisPath, "reports", "report.json")
}

func (c *RuntimeConfig) apply(src Overrides) {
	if src.AnalysisPath != "" {
		c.AnalysisPath = src.AnalysisPath
	}

	if src.ConfDir != "" {
		c.ConfDir = src.ConfDir
	}

	if src.SignaturesDir != "" {
		c.SignaturesDir = src.SignaturesDir
	}

	if src.WorkersSet {
		c.Workers = src.Workers
	}

	if src.PluginTimeoutSet {
		c.PluginTimeout = src.PluginTimeout
	}

	if len(src.Disabled) > 0 {
		c.Disabled = cleanList(src.Disabled)
	}

	if src.ReportFile != "" {
		c.ReportFile = src.ReportFile
	}

	if src.MetricsFile != "" {
		c.MetricsFile = src.MetricsFile
	}

	if src.LogFormat != "" {
		c.LogFormat = strings.ToLower(src.LogFormat)
	}

	if src.LogLevel != "" {
		c.LogLevel = src.LogLevel
	}
}

func loadFromFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, err
	}

	type rawConfig struct {
		AnalysisPath  string     `yaml:"analysisPath"`
		ConfDir       string     `yaml:"confDir"`
		SignaturesDir string     `yaml:"signaturesDir"`
		Workers       *int       `yaml:"workers"`
		PluginTimeout string     `yaml:"pluginTimeout"`
		Disabled      stringList `yaml:"disabled"`
		ReportFile    string     `yaml:"reportFile"`
		MetricsFile   string     `yaml:"metricsFile"`
		LogFormat     string     `yaml:"logFormat"`
		LogLevel      string     `yaml:"logLevel"`
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Overrides{}, err
	}

	over := Overrides{
		AnalysisPath:  raw.AnalysisPath,
		ConfDir:       raw.ConfDir,
		SignaturesDir: raw.SignaturesDir,
		Disabled:      raw.Disabled,
		ReportFile:    raw.ReportFile,
		MetricsFile:   raw.MetricsFile,
		LogFormat:     raw.LogFormat,
		LogLevel:      raw.LogLevel,
	}

	if raw.Workers != nil {
		over.Workers = *raw.Workers
		over.WorkersSet = true
	}

	if raw.PluginTimeout != "" {
		d, err := time.ParseDuration(raw.PluginTimeout)
		if err != nil {
			return Overrides{}, errors.Wrap(err, "pluginTimeout")
		}
		over.PluginTimeout = d
		over.PluginTimeoutSet = true
	}

	return over, nil
}

func overridesFromEnv() Overrides {
	ov := Overrides{}

	if value := os.Getenv(envAnalysisPath); value != "" {
		ov.AnalysisPath = value
	}

	if value := os.Getenv(envConfDir); value != "" {
		ov.ConfDir = value
	}

	if value := os.Getenv(envSignaturesDir); value != "" {
		ov.SignaturesDir = value
	}

	if value := os.Getenv(envWorkers); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			ov.Workers = parsed
			ov.WorkersSet = true
		}
	}

	if value := os.Getenv(envPluginTimeout); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			ov.PluginTimeout = parsed
			ov.PluginTimeoutSet = true
		}
	}

	if value := os.Getenv(envDisabled); value != "" {
		ov.Disabled = ParseList(value)
	}

	if value := os.Getenv(envReportFile); value != "" {
		ov.ReportFile = value
	}

	if value := os.Getenv(envMetricsFile); value != "" {
		ov.MetricsFile = value
	}

	if value := os.Getenv(envLogFormat); value != "" {
		ov.LogFormat = value
	}

	if value := os.Getenv(envLogLevel); value != "" {
		ov.LogLevel = value
	}

	return ov
}

// ParseList splits comma, space or newline separated plugin names.
func ParseList(input string) []string {
	return splitOnDelimiters(input, []rune{',', '\n', '\r', ' '})
}

func splitOnDelimiters(input string, delims []rune) []string {
	if input == "" {
		return nil
	}

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	separator := func(r rune) bool {
		for _, d := range delims {
			if r == d {
				return true
			}
		}
		return false
	}

	parts := strings.FieldsFunc(trimmed, separator)
	return cleanList(parts)
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		candidate := strings.TrimSpace(v)
		if candidate != "" {
			out = append(out, candidate)
		}
	}
	return out
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// stringList enables YAML fields that can be specified as a scalar or sequence.
type stringList []string

func (t *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var out []string
		for _, node := range value.Content {
			out = append(out, strings.TrimSpace(node.Value))
		}
		*t = cleanList(out)
	case yaml.ScalarNode:
		*t = ParseList(value.Value)
	default:
		return fmt.Errorf("unsupported YAML type for list")
	}
	return nil
}
