package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// RecordSagaStarted counts a saga that entered the workflow
func RecordSagaStarted(ctx context.Context) {
	RecordCounter(ctx, "saga_started_total", "Sagas started", 1)
}

// RecordSagaFinished counts a saga reaching a terminal status and observes
// how long it took end to end.
func RecordSagaFinished(ctx context.Context, status string, elapsed time.Duration) {
	var name, description string
	switch status {
	case "COMPLETED":
		name, description = "saga_completed_total", "Sagas completed"
	case "FAILED":
		name, description = "saga_failed_total", "Sagas failed"
	case "COMPENSATED":
		name, description = "saga_compensated_total", "Sagas compensated"
	default:
		return
	}

	RecordCounter(ctx, name, description, 1)
	RecordHistogram(ctx, "saga_duration_seconds", "Saga duration from start to terminal status", elapsed.Seconds(),
		attribute.String("status", status),
	)
}

// RecordMessageHandled counts inbound messages by outcome
func RecordMessageHandled(ctx context.Context, topic, outcome string) {
	RecordCounter(ctx, "saga_messages_handled_total", "Inbound saga messages handled", 1,
		attribute.String("topic", topic),
		attribute.String("outcome", outcome),
	)
}
