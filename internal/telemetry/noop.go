package telemetry

import (
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Noop returns a provider that records nothing.
func Noop() *Provider {
	p, err := NewWithProviders(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	if err != nil {
		panic(err)
	}
	return p
}
