package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/satlaunch/payloadledger/internal/config"
)

func TestStartSpanRecordsAttributesAndErrors(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	_, span := tp.Tracer(TracerName).Start(context.Background(), "contract.Verify")
	span.SetAttributes(attribute.String(AttrAssetID, "p1"))
	AddEvent(span, "policy.denied", attribute.String(AttrPolicyAction, "asset:verify"))
	RecordError(span, errors.New("denied"))
	RecordError(span, nil)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "contract.Verify", got.Name())
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Contains(t, got.Attributes(), attribute.String(AttrAssetID, "p1"))

	var names []string
	for _, e := range got.Events() {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "policy.denied")
	assert.Contains(t, names, "exception")
}

func TestStartSpanUsesGlobalProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), TracerName, "contract.Book", attribute.String(AttrAssetID, "p1"))
	defer span.End()
	assert.NotNil(t, ctx)
}

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Init(context.Background(), config.ObservabilityConfig{}, zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
