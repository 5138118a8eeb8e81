package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "agentbridge"

// Metrics holds all bridge metric instruments.
type Metrics struct {
	TasksRouted         metric.Int64Counter
	Escalations         metric.Int64Counter
	UpstreamFailures    metric.Int64Counter
	PersistenceFailures metric.Int64Counter
	BridgeActions       metric.Int64Counter
	BatchesDeduplicated metric.Int64Counter
	Confidence          metric.Float64Histogram
	ResponseTime        metric.Float64Histogram
}

// NewMetrics creates all metric instruments on mp, or on the global meter
// provider when mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.TasksRouted, err = meter.Int64Counter("agentbridge.tasks.routed",
		metric.WithDescription("Task router requests that produced a response")); err != nil {
		return nil, err
	}
	if m.Escalations, err = meter.Int64Counter("agentbridge.tasks.escalated",
		metric.WithDescription("Autonomous follow-up tasks attempted")); err != nil {
		return nil, err
	}
	if m.UpstreamFailures, err = meter.Int64Counter("agentbridge.completion.failures",
		metric.WithDescription("Completion calls that failed")); err != nil {
		return nil, err
	}
	if m.PersistenceFailures, err = meter.Int64Counter("agentbridge.persistence.failures",
		metric.WithDescription("Best-effort inserts that failed")); err != nil {
		return nil, err
	}
	if m.BridgeActions, err = meter.Int64Counter("agentbridge.bridge.actions",
		metric.WithDescription("Integration bridge actions dispatched")); err != nil {
		return nil, err
	}
	if m.BatchesDeduplicated, err = meter.Int64Counter("agentbridge.bridge.batches_deduplicated",
		metric.WithDescription("Batch updates skipped as already processed")); err != nil {
		return nil, err
	}
	if m.Confidence, err = meter.Float64Histogram("agentbridge.tasks.confidence",
		metric.WithDescription("Heuristic confidence of completions"),
		metric.WithExplicitBucketBoundaries(0.5, 0.6, 0.7, 0.8, 0.9, 0.98)); err != nil {
		return nil, err
	}
	if m.ResponseTime, err = meter.Float64Histogram("agentbridge.tasks.response_ms",
		metric.WithDescription("Reported task response time"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordTask records a routed task.
func (m *Metrics) RecordTask(ctx context.Context, agentType string, mock bool, confidence float64, responseMS int64) {
	attrs := metric.WithAttributes(
		attribute.String("agent.type", agentType),
		attribute.Bool("completion.mock", mock),
	)
	m.TasksRouted.Add(ctx, 1, attrs)
	m.Confidence.Record(ctx, confidence, attrs)
	m.ResponseTime.Record(ctx, float64(responseMS), attrs)
}

// RecordAction records a dispatched bridge action and its outcome.
func (m *Metrics) RecordAction(ctx context.Context, action string, ok bool) {
	m.BridgeActions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bridge.action", action),
		attribute.Bool("success", ok),
	))
}

// RecordPersistenceFailure records one failed best-effort insert.
func (m *Metrics) RecordPersistenceFailure(ctx context.Context, target string) {
	m.PersistenceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("target", target)))
}
