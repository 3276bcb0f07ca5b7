// Package telemetry centralizes the OpenTelemetry tracer and meter handles
// shared by the engine's instrumented packages, mirroring the dolt store's
// package-level doltTracer/doltMetrics pattern so every package asks the
// global (no-op until a real SDK provider is installed) provider for its
// own named tracer/meter instead of wiring one through constructors.
package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/nathanial/ledger-sub001"

// Tracer returns the shared tracer scoped to subsystem (e.g. "transactor",
// "journal"). Safe to call at package init time: it returns a no-op tracer
// until a real TracerProvider is registered with otel.SetTracerProvider.
func Tracer(subsystem string) trace.Tracer {
	return otel.Tracer(instrumentationName + "/" + subsystem)
}

// Meter returns the shared meter scoped to subsystem, with the same
// no-op-until-registered behavior as Tracer.
func Meter(subsystem string) metric.Meter {
	return otel.Meter(instrumentationName + "/" + subsystem)
}
