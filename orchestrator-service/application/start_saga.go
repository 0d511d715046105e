package application

import (
	"context"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const sagaInitiatedMessage = "Order saga initiated successfully"

// StartSagaCommand represents an order placement request. Quantity and
// amount are pointers so a missing field can be told apart from zero.
type StartSagaCommand struct {
	CustomerID string   `json:"customerId"`
	ProductID  string   `json:"productId"`
	Quantity   *int     `json:"quantity"`
	Amount     *float64 `json:"amount"`
}

// StartSagaResponse represents the response after starting a saga
type StartSagaResponse struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StartSaga use case. It persists the saga and its first messages and
// returns without waiting for any participant.
type StartSaga struct {
	sagaRepository domain.SagaRepository
	notifier       OutboxNotifier
	retry          retry.Config
	logger         zerolog.Logger
}

// NewStartSaga creates a new StartSaga use case
func NewStartSaga(
	sagaRepository domain.SagaRepository,
	notifier OutboxNotifier,
	retryConfig retry.Config,
	logger zerolog.Logger,
) *StartSaga {
	return &StartSaga{
		sagaRepository: sagaRepository,
		notifier:       notifier,
		retry:          retryConfig,
		logger:         logger,
	}
}

// Execute executes the start saga use case
func (uc *StartSaga) Execute(ctx context.Context, cmd *StartSagaCommand) (*StartSagaResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "StartSaga")
	defer span.End()

	if err := uc.validateCommand(cmd); err != nil {
		return nil, err
	}

	saga, err := domain.NewOrderSaga(cmd.CustomerID, cmd.ProductID, *cmd.Quantity, *cmd.Amount)
	if err != nil {
		return nil, invalidRequest(err.Error())
	}

	if err := saga.Start(); err != nil {
		return nil, newError(CodeSagaStartFailed, "failed to start saga", err)
	}

	for _, event := range saga.Events() {
		telemetry.InjectEvent(ctx, event)
	}

	attempt := 0
	err = retry.Do(ctx, uc.retry, func() error {
		attempt++
		err := uc.sagaRepository.Create(ctx, saga)
		if !errors.Is(err, domain.ErrDuplicateOrder) {
			return err
		}
		if attempt > 1 {
			// an earlier attempt may have committed before its reply was lost
			return uc.confirmCreated(ctx, saga)
		}
		return retry.Permanent(err)
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Error().Err(err).Str("order_id", saga.OrderID.String()).Msg("failed to persist saga")
		return nil, newError(CodeSagaStartFailed, "failed to start saga", errors.Wrap(err, "failed to save saga"))
	}

	uc.notifier.Notify()

	span.SetAttributes(attribute.String("order_id", saga.OrderID.String()))
	telemetry.RecordSagaStarted(ctx)
	uc.logger.Info().
		Str("order_id", saga.OrderID.String()).
		Str("customer_id", saga.CustomerID).
		Str("status", saga.Status.String()).
		Str("step", saga.CurrentStep.String()).
		Msg("saga started")

	return &StartSagaResponse{
		OrderID: saga.OrderID.String(),
		Status:  saga.Status.String(),
		Message: sagaInitiatedMessage,
	}, nil
}

func (uc *StartSaga) confirmCreated(ctx context.Context, saga *domain.OrderSaga) error {
	stored, err := uc.sagaRepository.FindByOrderID(ctx, saga.OrderID)
	if err != nil {
		return err
	}
	if stored == nil || stored.CustomerID != saga.CustomerID || stored.ProductID != saga.ProductID {
		return retry.Permanent(errors.Wrap(domain.ErrDuplicateOrder, saga.OrderID.String()))
	}

	uc.logger.Warn().Str("order_id", saga.OrderID.String()).Msg("saga already stored by an earlier attempt")
	return nil
}

// validateCommand checks field presence only
func (uc *StartSaga) validateCommand(cmd *StartSagaCommand) error {
	if cmd == nil {
		return invalidRequest("request body is required")
	}

	if cmd.CustomerID == "" {
		return invalidRequest("customerId is required")
	}

	if cmd.ProductID == "" {
		return invalidRequest("productId is required")
	}

	if cmd.Quantity == nil {
		return invalidRequest("quantity is required")
	}

	if cmd.Amount == nil {
		return invalidRequest("amount is required")
	}

	return nil
}
