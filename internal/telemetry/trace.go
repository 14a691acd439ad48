// Package telemetry wraps OpenTelemetry tracing for contract operations.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of contract spans.
const TracerName = "payloadledger/contract"

// StartSpan creates a new span for a contract operation.
//
//	ctx, span := telemetry.StartSpan(ctx, telemetry.TracerName, "contract.Verify",
//	    attribute.String(telemetry.AttrAssetID, id),
//	)
//	defer span.End()
func StartSpan(ctx context.Context, tracerName, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	return tracer.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RecordError records an error on the span and sets the span status to error.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// Common attribute keys for contract spans
const (
	AttrAssetID       = "asset.id"
	AttrAssetState    = "asset.state"
	AttrCallerSubject = "caller.subject"
	AttrCallerRole    = "caller.role"
	AttrPolicyAction  = "policy.action"
	AttrResultCount   = "result.count"
)
