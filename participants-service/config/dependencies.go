package config

import (
	"context"
	"fmt"

	"github.com/draftea/order-saga/participants-service/application"
	"github.com/draftea/order-saga/participants-service/domain"
	"github.com/draftea/order-saga/participants-service/handlers"
	"github.com/draftea/order-saga/shared/events"
	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Logger    zerolog.Logger
	Telemetry *telemetry.Telemetry

	// Infrastructure
	Bus events.Bus

	// Use Cases
	ProcessPayment   *application.ProcessPayment
	ReserveInventory *application.ReserveInventory
	RefundPayment    *application.RefundPayment
	ReleaseInventory *application.ReleaseInventory

	// Event Handlers
	ParticipantEventHandlers *handlers.ParticipantEventHandlers

	shutdownTelemetry func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logging.New(config.Logging),
	}

	tel, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.ParticipantsServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	deps.Telemetry = tel
	deps.shutdownTelemetry = shutdown

	bus, err := sharedinfra.NewBus(ctx, config.Bus, deps.Logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create message bus: %w", err)
	}
	deps.Bus = bus

	deps.ProcessPayment, deps.ReserveInventory, deps.RefundPayment, deps.ReleaseInventory =
		NewUseCases(config.Simulation, bus, config.Retry, deps.Logger)

	deps.ParticipantEventHandlers = handlers.NewParticipantEventHandlers(
		deps.ProcessPayment,
		deps.ReserveInventory,
		deps.RefundPayment,
		deps.ReleaseInventory,
		deps.Logger,
	)

	return deps, nil
}

// NewEventHandlers builds both participants on publisher. The coordinator
// uses it to run them in-process.
func NewEventHandlers(sim Simulation, publisher events.Publisher, retryConfig retry.Config, logger zerolog.Logger) *handlers.ParticipantEventHandlers {
	processPayment, reserveInventory, refundPayment, releaseInventory := NewUseCases(sim, publisher, retryConfig, logger)
	return handlers.NewParticipantEventHandlers(processPayment, reserveInventory, refundPayment, releaseInventory, logger)
}

// NewUseCases builds the participant use cases from the simulation settings
func NewUseCases(sim Simulation, publisher events.Publisher, retryConfig retry.Config, logger zerolog.Logger) (
	*application.ProcessPayment,
	*application.ReserveInventory,
	*application.RefundPayment,
	*application.ReleaseInventory,
) {
	paymentLogger := logger.With().Str("participant", "payment").Logger()
	inventoryLogger := logger.With().Str("participant", "inventory").Logger()

	return application.NewProcessPayment(domain.NewRandomDecider(sim.Payment.SuccessRate), publisher, sim.Payment.Latency, retryConfig, paymentLogger),
		application.NewReserveInventory(domain.NewRandomDecider(sim.Inventory.SuccessRate), publisher, sim.Inventory.Latency, retryConfig, inventoryLogger),
		application.NewRefundPayment(sim.Payment.CompensationLatency, paymentLogger),
		application.NewReleaseInventory(sim.Inventory.CompensationLatency, inventoryLogger)
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.Bus != nil {
		if err := d.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close message bus: %w", err))
		}
	}

	if d.shutdownTelemetry != nil {
		d.shutdownTelemetry()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
