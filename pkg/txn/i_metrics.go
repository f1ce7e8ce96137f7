package txn

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type engineMetrics struct {
	commands    metric.Int64Counter
	commits     metric.Int64Counter
	aborts      metric.Int64Counter
	collections metric.Int64Counter
	reclaimed   metric.Int64Counter
	pending     metric.Int64UpDownCounter
}

func newEngineMetrics(meter metric.Meter) (*engineMetrics, error) {
	commands, err := meter.Int64Counter("mvto.commands",
		metric.WithDescription("Commands processed by the engine worker."))
	if err != nil {
		return nil, err
	}
	commits, err := meter.Int64Counter("mvto.txn.commits",
		metric.WithDescription("Transactions committed."))
	if err != nil {
		return nil, err
	}
	aborts, err := meter.Int64Counter("mvto.txn.aborts",
		metric.WithDescription("Transactions aborted, by reason."))
	if err != nil {
		return nil, err
	}
	collections, err := meter.Int64Counter("mvto.collector.passes",
		metric.WithDescription("Collector passes run."))
	if err != nil {
		return nil, err
	}
	reclaimed, err := meter.Int64Counter("mvto.collector.reclaimed_versions",
		metric.WithDescription("Versions dropped by the collector."))
	if err != nil {
		return nil, err
	}
	pending, err := meter.Int64UpDownCounter("mvto.txn.pending",
		metric.WithDescription("Transactions initialized and not yet terminated."))
	if err != nil {
		return nil, err
	}

	return &engineMetrics{
		commands:    commands,
		commits:     commits,
		aborts:      aborts,
		collections: collections,
		reclaimed:   reclaimed,
		pending:     pending,
	}, nil
}

func withCommand(typ requestType) metric.AddOption {
	return metric.WithAttributes(attribute.String("command", typ.String()))
}

func withReason(reason abortReason) metric.AddOption {
	return metric.WithAttributes(attribute.String("reason", string(reason)))
}
