package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration. Environment
// keys are derived from field names (RFM_INPUT_PATH, RFM_ANALYSIS_REFERENCE_DATE)
// without envconfig tags, which would also match unprefixed variables like PATH.
type Config struct {
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Server    ServerConfig    `yaml:"server"`
}

// InputConfig locates the transaction table
type InputConfig struct {
	Path   string `yaml:"path" validate:"required"`
	Sheet  string `yaml:"sheet"`
	Format string `yaml:"format" validate:"oneof=auto xlsx csv"`
}

// OutputConfig controls where results are written
type OutputConfig struct {
	Dir           string `yaml:"dir" validate:"required"`
	LoyalFile     string `yaml:"loyal_file" split_words:"true" validate:"required"`
	ScoredFile    string `yaml:"scored_file" split_words:"true"`
	TargetSegment string `yaml:"target_segment" split_words:"true" validate:"required"`
	BOMPrefix     bool   `yaml:"bom_prefix" split_words:"true"`
}

// AnalysisConfig holds the RFM computation parameters
type AnalysisConfig struct {
	// ReferenceDate is the day recency is measured from. Empty means the day
	// after the last cleaned transaction.
	ReferenceDate      string  `yaml:"reference_date" split_words:"true" validate:"omitempty,datetime=2006-01-02"`
	CancellationMarker string  `yaml:"cancellation_marker" split_words:"true" validate:"required"`
	Quantiles          int     `yaml:"quantiles" validate:"eq=5"`
	FenceMultiplier    float64 `yaml:"fence_multiplier" split_words:"true" validate:"gt=0"`
	LowerPercentile    float64 `yaml:"lower_percentile" split_words:"true" validate:"gte=0,lt=1"`
	UpperPercentile    float64 `yaml:"upper_percentile" split_words:"true" validate:"gtfield=LowerPercentile,lte=1"`
	ScanOutliers       bool    `yaml:"scan_outliers" split_words:"true"`
	TopN               int     `yaml:"top_n" split_words:"true" validate:"gte=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" validate:"oneof=json text"`
	Output   string `yaml:"output" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" split_words:"true"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	EnableTracing bool   `yaml:"enable_tracing" split_words:"true"`
	TraceFile     string `yaml:"trace_file" split_words:"true"`
	EnableMetrics bool   `yaml:"enable_metrics" split_words:"true"`
	MetricsFile   string `yaml:"metrics_file" split_words:"true"`
}

// ServerConfig contains HTTP server configuration for the report server
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
	// RateLimit is requests per second across all clients; 0 disables it
	RateLimit float64 `yaml:"rate_limit" split_words:"true" validate:"gte=0"`
	RateBurst int     `yaml:"rate_burst" split_words:"true" validate:"gte=0"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Sheet:  DefaultSheetName,
			Format: DefaultInputFormat,
		},
		Output: OutputConfig{
			Dir:           DefaultOutputDir,
			LoyalFile:     DefaultLoyalFile,
			TargetSegment: DefaultTargetSegment,
		},
		Analysis: AnalysisConfig{
			CancellationMarker: DefaultCancellationMarker,
			Quantiles:          DefaultQuantiles,
			FenceMultiplier:    DefaultFenceMultiplier,
			LowerPercentile:    DefaultLowerPercentile,
			UpperPercentile:    DefaultUpperPercentile,
			TopN:               DefaultTopN,
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   DefaultLogFormat,
			Output:   DefaultLogOutput,
			FilePath: DefaultLogFile,
		},
		Server: ServerConfig{
			Port:            DefaultServerPort,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
			RateLimit:       DefaultRateLimit,
			RateBurst:       DefaultRateBurst,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// RFM_* environment variables, in increasing order of precedence. The input
// path is not required here because the CLI may still supply it.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := getConfigFilePath(); configFile != "" {
		if err := cfg.mergeFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	return cfg, nil
}

// LoadFile is Load with an explicit YAML file
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, fmt.Errorf("failed to load config from file: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return cfg, nil
}

// mergeFile overlays the YAML file onto c; keys absent from the file keep
// their current values
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks the configuration against its struct tags
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config validation failed: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		return fmt.Errorf("config validation failed: logging file path required for output %q", c.Logging.Output)
	}
	return nil
}

// Reference returns the configured reference date. ok is false when the date
// should be derived from the data.
func (a AnalysisConfig) Reference() (ref time.Time, ok bool, err error) {
	if a.ReferenceDate == "" {
		return time.Time{}, false, nil
	}
	ref, err = time.Parse(ReferenceDateLayout, a.ReferenceDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid reference date %q: %w", a.ReferenceDate, err)
	}
	return ref, true, nil
}

// LoyalPath returns the resolved path of the target segment export
func (o OutputConfig) LoyalPath() string {
	return o.resolve(o.LoyalFile)
}

// ScoredPath returns the resolved path of the scored table export, or ""
// when it is disabled
func (o OutputConfig) ScoredPath() string {
	if o.ScoredFile == "" {
		return ""
	}
	return o.resolve(o.ScoredFile)
}

func (o OutputConfig) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Dir, name)
}

// Address returns the listen address of the report server
func (s ServerConfig) Address() string {
	return fmt.Sprintf(":%d", s.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(ConfigFileEnv); path != "" {
		return path
	}

	locations := []string{
		"rfm.yaml",
		"configs/rfm.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}
