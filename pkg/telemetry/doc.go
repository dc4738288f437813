// Package telemetry reports progress and records diagnostics for a single
// invocation of the build tool.
//
// # Progress
//
// Telemetry is the sink pipeline stages report progress to. It has two
// implementations, chosen once per invocation by Select:
//
//   - Reporter renders one styled line per event on the terminal
//   - Null discards every event
//
// The chosen sink is passed explicitly to each stage.
//
// # Logging
//
// SetupLogging configures the global zerolog logger once at process start.
// The level comes from GLEAM_LOG and defaults to off:
//
//	if err := telemetry.SetupLogging(cfg.Logging); err != nil {
//	    return err
//	}
//	logger := telemetry.Component("deps")
//	logger.Debug().Str("package", name).Msg("Downloading")
//
// # Tracing and metrics
//
// A Session holds the OpenTelemetry tracer and a private Prometheus registry.
// Commands and stages are wrapped in an Operation:
//
//	ctx = session.WithContext(ctx)
//	op := telemetry.StartStage(ctx, "compile")
//	err := compile(op.Ctx)
//	op.End(err)
//
// Spans are exported to stdout or an OTLP collector when GLEAM_TRACE_EXPORTER
// selects one. Metrics are written in text format to GLEAM_METRICS_FILE on
// Shutdown.
package telemetry
