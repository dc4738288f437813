package telemetry

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/brightly-salty/gleam/pkg/config"
)

// Config contains the telemetry configuration for one invocation.
type Config struct {
	// ServiceName identifies the tool in traces.
	ServiceName string

	// ServiceVersion is the version of the tool.
	ServiceVersion string

	// Logging contains logging configuration.
	Logging LoggingConfig

	// Tracing contains tracing configuration.
	Tracing TracingConfig

	// Metrics contains stage metrics configuration.
	Metrics MetricsConfig
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, off).
	Level string

	// NoColour disables ANSI colour in log output.
	NoColour bool

	// Output receives log lines. Defaults to stderr.
	Output io.Writer
}

// TracingConfig configures tracing.
type TracingConfig struct {
	// Exporter selects the span exporter (none, stdout, otlp).
	Exporter string

	// Endpoint is the OTLP collector address.
	Endpoint string

	// SamplingRate is the trace sampling rate (0.0 to 1.0).
	SamplingRate float64

	// ExportTimeout bounds each span export.
	ExportTimeout time.Duration

	// Insecure disables TLS for the OTLP connection.
	Insecure bool
}

// MetricsConfig configures stage metrics.
type MetricsConfig struct {
	// File receives metrics in Prometheus text format on shutdown. Metrics are
	// still collected in memory when empty.
	File string

	// Namespace is the metrics name prefix.
	Namespace string

	// Buckets are the stage duration histogram buckets in seconds.
	Buckets []float64
}

// DefaultConfig returns a configuration that logs nothing and exports nothing.
func DefaultConfig(version string) *Config {
	return &Config{
		ServiceName:    "gleam",
		ServiceVersion: version,
		Logging: LoggingConfig{
			Level:  "off",
			Output: os.Stderr,
		},
		Tracing: TracingConfig{
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 10 * time.Second,
			Insecure:      true,
		},
		Metrics: MetricsConfig{
			Namespace: "gleam",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	}
}

// FromEnvironment derives the telemetry configuration from environment
// settings.
func FromEnvironment(env *config.Environment, version string) *Config {
	cfg := DefaultConfig(version)
	cfg.Logging.Level = env.LogLevel
	cfg.Logging.NoColour = env.NoColour
	cfg.Tracing.Exporter = env.TraceExporter
	cfg.Tracing.Endpoint = env.TraceEndpoint
	cfg.Metrics.File = env.MetricsFile
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name is required")
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	switch c.Tracing.Exporter {
	case "none", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("otlp trace exporter requires an endpoint")
		}
	default:
		return fmt.Errorf("invalid trace exporter: %s", c.Tracing.Exporter)
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0 and 1, got: %f", c.Tracing.SamplingRate)
	}

	return nil
}
