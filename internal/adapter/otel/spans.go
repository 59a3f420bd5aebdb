package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "stackforge"

// StartProvisionSpan starts a span covering one project provisioning run.
func StartProvisionSpan(ctx context.Context, ownerID, name, stack string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provision",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("project.name", name),
			attribute.String("project.stack", stack),
		),
	)
}

// StartPipelineSpan starts a span for a pipeline trigger.
func StartPipelineSpan(ctx context.Context, projectID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.trigger",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("pipeline.kind", kind),
		),
	)
}

// StartRegisterSpan starts a span for account registration.
func StartRegisterSpan(ctx context.Context, username string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "register",
		trace.WithAttributes(attribute.String("user.username", username)),
	)
}
