package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects Prometheus metrics about commands and pipeline stages.
type Metrics struct {
	config MetricsConfig

	commands        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	stages        *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec

	packagesDownloaded prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates a metrics collector with a private registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	buckets := cfg.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	namespace := cfg.Namespace

	m := &Metrics{
		config:   cfg,
		registry: prometheus.NewRegistry(),

		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of commands run",
			},
			[]string{"command", "status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of commands in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),
		stages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stages_total",
				Help:      "Total number of pipeline stages run",
			},
			[]string{"stage", "status"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   buckets,
			},
			[]string{"stage"},
		),
		packagesDownloaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "packages_downloaded_total",
				Help:      "Total number of dependency packages downloaded",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.commands,
		m.commandDuration,
		m.stages,
		m.stageDuration,
		m.packagesDownloaded,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	return m, nil
}

// RecordCommand records a finished command.
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStage records a finished pipeline stage.
func (m *Metrics) RecordStage(stage, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage, status).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// AddPackagesDownloaded counts downloaded packages.
func (m *Metrics) AddPackagesDownloaded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.packagesDownloaded.Add(float64(n))
}

// Flush writes all metrics to the configured file in text format. It does
// nothing when no file is configured.
func (m *Metrics) Flush() error {
	if m == nil || m.config.File == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(m.config.File, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", m.config.File, err)
	}
	return nil
}

// Timer measures an operation's duration.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the time elapsed since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
