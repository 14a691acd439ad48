package contract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/satlaunch/payloadledger/internal/auth"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

func TestServiceRecordsMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	m, err := telemetry.NewContractMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	h := newHarness(t)
	h.svc.WithMetrics(m)
	ctx := context.Background()

	h.book("p1", "alice")
	_, err = h.svc.Verify(ctx, h.as("alice", auth.RolePayloadOwner), "p1")
	require.Error(t, err)
	_, err = h.svc.Verify(ctx, h.as("bob", auth.RoleLauncher), "p1")
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	var denied int64
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				switch metric.Name {
				case "contract.transaction.count":
					op, _ := dp.Attributes.Value(attribute.Key("contract.operation"))
					outcome, _ := dp.Attributes.Value(attribute.Key("contract.outcome"))
					counts[op.AsString()+"/"+outcome.AsString()] += dp.Value
				case "contract.policy.denied.count":
					denied += dp.Value
				}
			}
		}
	}

	assert.Equal(t, map[string]int64{
		"Book/OK":              1,
		"Verify/AUTHORIZATION": 1,
		"Verify/OK":            1,
	}, counts)
	assert.Equal(t, int64(1), denied)
}
