// Package config provides configuration loading for milestoned.
//
// Configuration is assembled from hardcoded defaults, an optional YAML file,
// and MILESTONED_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultPlanPath is where the milestone checklist lives unless overridden.
	DefaultPlanPath = "artifacts/plan.md"

	// DefaultArtifactsDir receives every file the model asks to write.
	DefaultArtifactsDir = "artifacts"

	// DefaultConfigFile is read from the working directory when no path is given.
	DefaultConfigFile = "milestoned.yaml"

	defaultModelName   = "gpt-4o-mini"
	defaultModelURL    = "https://api.openai.com/v1"
	defaultTimeout     = 120 * time.Second
	defaultTemperature = 0.2
	defaultMaxTokens   = 4096

	defaultTelemetryProtocol = "grpc"
	defaultServiceName       = "milestoned"
	defaultSampleRate        = 1.0
	defaultExportInterval    = 15 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// Config holds the complete milestoned configuration.
type Config struct {
	Plan      PlanConfig      `koanf:"plan"`
	Artifacts ArtifactsConfig `koanf:"artifacts"`
	Model     ModelConfig     `koanf:"model"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// PlanConfig locates the plan file.
type PlanConfig struct {
	Path string `koanf:"path"`
}

// ArtifactsConfig locates the artifact directory.
type ArtifactsConfig struct {
	Dir string `koanf:"dir"`
}

// ModelConfig configures the OpenAI-compatible chat completion endpoint.
type ModelConfig struct {
	BaseURL     string        `koanf:"base_url"`
	Name        string        `koanf:"name"`
	APIKey      Secret        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
	MaxTokens   int           `koanf:"max_tokens"`

	// SystemPrompt replaces the built-in implementation instructions when set.
	SystemPrompt string `koanf:"system_prompt"`
}

// LoggingConfig holds the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OTLP export of run traces and metrics.
// Export is off while Endpoint is empty.
type TelemetryConfig struct {
	Endpoint      string `koanf:"endpoint"`
	Protocol      string `koanf:"protocol"` // "grpc" or "http/protobuf"
	Insecure      bool   `koanf:"insecure"`
	TLSSkipVerify bool   `koanf:"tls_skip_verify"`
	ServiceName   string `koanf:"service_name"`

	// SampleRate is the trace sampling ratio. Zero means the default of 1.0.
	SampleRate      float64       `koanf:"sample_rate"`
	ExportInterval  time.Duration `koanf:"export_interval"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Plan.Path == "" {
		errs = append(errs, errors.New("plan.path is required"))
	}
	if c.Artifacts.Dir == "" {
		errs = append(errs, errors.New("artifacts.dir is required"))
	}
	if c.Model.Name == "" {
		errs = append(errs, errors.New("model.name is required"))
	}
	if c.Model.BaseURL == "" {
		errs = append(errs, errors.New("model.base_url is required"))
	}
	if c.Model.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("model.timeout must be > 0, got %s", c.Model.Timeout))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature must be within [0, 2], got %v", c.Model.Temperature))
	}
	if c.Model.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("model.max_tokens cannot be negative, got %d", c.Model.MaxTokens))
	}
	switch c.Telemetry.Protocol {
	case "grpc", "http/protobuf":
	default:
		errs = append(errs, fmt.Errorf("telemetry.protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol))
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be within [0, 1], got %v", c.Telemetry.SampleRate))
	}
	if c.Telemetry.ExportInterval <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.export_interval must be > 0, got %s", c.Telemetry.ExportInterval))
	}
	if c.Telemetry.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("telemetry.shutdown_timeout must be > 0, got %s", c.Telemetry.ShutdownTimeout))
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
