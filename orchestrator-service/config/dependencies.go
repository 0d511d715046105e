package config

import (
	"context"
	"fmt"

	"github.com/draftea/order-saga/orchestrator-service/application"
	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/orchestrator-service/handlers"
	"github.com/draftea/order-saga/orchestrator-service/infrastructure"
	participantsconfig "github.com/draftea/order-saga/participants-service/config"
	participanthandlers "github.com/draftea/order-saga/participants-service/handlers"
	"github.com/draftea/order-saga/shared/events"
	sharedinfra "github.com/draftea/order-saga/shared/infrastructure"
	"github.com/draftea/order-saga/shared/locker"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/outbox"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Logger    zerolog.Logger
	Telemetry *telemetry.Telemetry

	// Database
	DB *sqlx.DB

	// Repositories
	SagaRepository domain.SagaRepository
	OutboxStore    outbox.Store

	// Infrastructure
	Bus    events.Bus
	Relay  *outbox.Relay
	Locker locker.Locker
	Redis  *redis.Client

	// Use Cases
	StartSaga              *application.StartSaga
	GetOrder               *application.GetOrder
	ListOrders             *application.ListOrders
	ProcessPaymentResult   *application.ProcessPaymentResult
	ProcessInventoryResult *application.ProcessInventoryResult
	ReconcileSagas         *application.ReconcileSagas

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Event Handlers
	SagaEventHandlers        *handlers.SagaEventHandlers
	ParticipantEventHandlers *participanthandlers.ParticipantEventHandlers

	shutdownTelemetry func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logging.New(config.Logging),
	}

	tel, shutdown, err := telemetry.InitTelemetry(ctx, telemetry.OrchestratorServiceConfig.WithOTLPEndpoint(config.Telemetry.OTLPEndpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	deps.Telemetry = tel
	deps.shutdownTelemetry = shutdown

	if err := deps.buildStore(ctx, config); err != nil {
		deps.Close()
		return nil, err
	}

	if err := deps.buildLocker(ctx, config); err != nil {
		deps.Close()
		return nil, err
	}

	bus, err := sharedinfra.NewBus(ctx, config.Bus, deps.Logger)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create message bus: %w", err)
	}
	deps.Bus = bus

	deps.Relay = outbox.NewRelay(deps.OutboxStore, bus, config.Outbox, deps.Logger)

	// Initialize use cases
	deps.StartSaga = application.NewStartSaga(deps.SagaRepository, deps.Relay, config.Retry, deps.Logger)
	deps.GetOrder = application.NewGetOrder(deps.SagaRepository)
	deps.ListOrders = application.NewListOrders(deps.SagaRepository)
	deps.ProcessPaymentResult = application.NewProcessPaymentResult(deps.SagaRepository, deps.Locker, deps.Relay, config.Retry, deps.Logger)
	deps.ProcessInventoryResult = application.NewProcessInventoryResult(deps.SagaRepository, deps.Locker, deps.Relay, config.Retry, deps.Logger)
	deps.ReconcileSagas = application.NewReconcileSagas(deps.SagaRepository, deps.Locker, deps.Relay, config.Retry, config.Reconcile, deps.Logger)

	// Initialize handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(deps.StartSaga, deps.GetOrder, deps.ListOrders, deps.Logger)
	deps.SagaEventHandlers = handlers.NewSagaEventHandlers(deps.ProcessPaymentResult, deps.ProcessInventoryResult, bus, deps.Logger)

	if config.Participants.Embedded {
		deps.ParticipantEventHandlers = participantsconfig.NewEventHandlers(config.Participants.Simulation, bus, config.Retry, deps.Logger)
	}

	return deps, nil
}

func (d *Dependencies) buildStore(ctx context.Context, config *Config) error {
	if config.Database.Driver == StoreDriverMemory {
		repo := infrastructure.NewMemorySagaRepository()
		d.SagaRepository = repo
		d.OutboxStore = repo
		return nil
	}

	db, err := sharedinfra.OpenDB(ctx, config.Database.Driver, config.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	d.DB = db

	if err := infrastructure.Migrate(ctx, db, config.Database.Driver, d.Logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	d.SagaRepository = infrastructure.NewSQLSagaRepository(db)
	d.OutboxStore = sharedinfra.NewSQLOutboxStore(db)
	return nil
}

func (d *Dependencies) buildLocker(ctx context.Context, config *Config) error {
	if config.Locker.Driver != LockerDriverRedis {
		d.Locker = locker.NewKeyedMutex()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Locker.RedisAddr,
		Password: config.Locker.RedisPassword,
		DB:       config.Locker.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	d.Redis = client
	d.Locker = locker.NewRedisLocker(client, config.Locker.Redis)
	return nil
}

// Subscribe registers the coordinator, and the embedded participants when
// enabled, on the bus
func (d *Dependencies) Subscribe(ctx context.Context) error {
	if err := d.SagaEventHandlers.Subscribe(ctx, d.Bus); err != nil {
		return err
	}

	if d.ParticipantEventHandlers != nil {
		if err := d.ParticipantEventHandlers.Subscribe(ctx, d.Bus); err != nil {
			return err
		}
		d.Logger.Info().Msg("embedded participants subscribed")
	}

	return nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.Bus != nil {
		if err := d.Bus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close message bus: %w", err))
		}
	}

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
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
