package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
)

// publishResult sends exactly one reply keyed by orderId
func publishResult(ctx context.Context, publisher events.Publisher, cfg retry.Config, orderID string, topic events.Topic, data interface{}) error {
	id := models.ID(orderID)
	event := events.NewEvent(id, topic, data).WithCorrelationID(id)
	telemetry.InjectEvent(ctx, event)

	err := retry.Do(ctx, cfg, func() error {
		return publisher.Publish(ctx, event)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to publish %s", topic)
	}
	return nil
}

// simulateWork waits d or until ctx is done
func simulateWork(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
