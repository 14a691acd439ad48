package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of contract metrics.
const MeterName = "payloadledger/contract"

// OutcomeOK labels transactions that returned no error.
const OutcomeOK = "OK"

// ContractMetrics holds metric instruments for contract transactions.
// Create once per process and share between services.
type ContractMetrics struct {
	TxCounter     metric.Int64Counter     // Transactions by operation and outcome
	TxDuration    metric.Float64Histogram // Handler latency
	DeniedCounter metric.Int64Counter     // Policy denials by action and role
}

// NewContractMetrics creates the instruments on mp. A nil mp uses the global provider.
func NewContractMetrics(mp metric.MeterProvider) (*ContractMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(MeterName)

	txCounter, err := meter.Int64Counter(
		"contract.transaction.count",
		metric.WithDescription("Total number of contract transactions"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, err
	}

	txDuration, err := meter.Float64Histogram(
		"contract.transaction.duration",
		metric.WithDescription("Contract transaction duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
	if err != nil {
		return nil, err
	}

	deniedCounter, err := meter.Int64Counter(
		"contract.policy.denied.count",
		metric.WithDescription("Total number of transactions refused by the policy table"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return nil, err
	}

	return &ContractMetrics{
		TxCounter:     txCounter,
		TxDuration:    txDuration,
		DeniedCounter: deniedCounter,
	}, nil
}

// RecordTransaction records one finished handler call. outcome is OutcomeOK or an error code.
func (m *ContractMetrics) RecordTransaction(ctx context.Context, operation, outcome string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("contract.operation", operation),
		attribute.String("contract.outcome", outcome),
	)
	m.TxCounter.Add(ctx, 1, attrs)
	m.TxDuration.Record(ctx, durationMs, attrs)
}

// RecordDenied records a policy denial.
func (m *ContractMetrics) RecordDenied(ctx context.Context, action, role string) {
	if m == nil {
		return
	}
	m.DeniedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrPolicyAction, action),
		attribute.String(AttrCallerRole, role),
	))
}
