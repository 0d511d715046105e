package telemetry

import (
	"context"

	"github.com/draftea/order-saga/shared/events"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectEvent copies the active trace context into the event metadata
func InjectEvent(ctx context.Context, event *events.Event) {
	if event.Metadata == nil {
		event.Metadata = make(events.Metadata)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(event.Metadata))
}

// ExtractEvent continues the trace carried by an inbound event
func ExtractEvent(ctx context.Context, event *events.Event) context.Context {
	if event.Metadata == nil {
		return ctx
	}
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(event.Metadata))
}
