package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "stackforge"

// Metrics holds the provisioning metric instruments. A nil *Metrics records nothing.
type Metrics struct {
	ProjectsCreated    metric.Int64Counter
	ProjectsFailed     metric.Int64Counter
	PipelinesTriggered metric.Int64Counter
	Warnings           metric.Int64Counter
	ProvisionDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ProjectsCreated, err = meter.Int64Counter("stackforge.projects.created",
		metric.WithDescription("Projects provisioned successfully"))
	if err != nil {
		return nil, err
	}

	m.ProjectsFailed, err = meter.Int64Counter("stackforge.projects.failed",
		metric.WithDescription("Projects whose provisioning failed"))
	if err != nil {
		return nil, err
	}

	m.PipelinesTriggered, err = meter.Int64Counter("stackforge.pipelines.triggered",
		metric.WithDescription("Pipelines triggered, by kind and resulting status"))
	if err != nil {
		return nil, err
	}

	m.Warnings, err = meter.Int64Counter("stackforge.warnings",
		metric.WithDescription("Non-fatal sub-step failures, by step"))
	if err != nil {
		return nil, err
	}

	m.ProvisionDuration, err = meter.Float64Histogram("stackforge.provision.duration_seconds",
		metric.WithDescription("Project provisioning duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordProvision counts one provisioning outcome and its duration.
func (m *Metrics) RecordProvision(ctx context.Context, backend, frontend string, ok bool, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("frontend", frontend),
	)
	if ok {
		m.ProjectsCreated.Add(ctx, 1, attrs)
	} else {
		m.ProjectsFailed.Add(ctx, 1, attrs)
	}
	m.ProvisionDuration.Record(ctx, seconds, attrs)
}

// RecordPipeline counts one triggered pipeline.
func (m *Metrics) RecordPipeline(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.PipelinesTriggered.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordWarning counts one swallowed sub-step failure.
func (m *Metrics) RecordWarning(ctx context.Context, step string) {
	if m == nil {
		return
	}
	m.Warnings.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}
