package application

import (
	"context"
	"time"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// OrderSagaDTO is the public view of a saga
type OrderSagaDTO struct {
	OrderID       string    `json:"orderId"`
	CustomerID    string    `json:"customerId"`
	ProductID     string    `json:"productId"`
	Quantity      int       `json:"quantity"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	CurrentStep   string    `json:"currentStep"`
	PaymentID     *string   `json:"paymentId"`
	ReservationID *string   `json:"reservationId"`
	FailureReason string    `json:"failureReason,omitempty"`
	Attempts      int       `json:"attempts"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewOrderSagaDTO converts a saga to its public view
func NewOrderSagaDTO(saga *domain.OrderSaga) *OrderSagaDTO {
	return &OrderSagaDTO{
		OrderID:       saga.OrderID.String(),
		CustomerID:    saga.CustomerID,
		ProductID:     saga.ProductID,
		Quantity:      saga.Quantity,
		Amount:        saga.Amount,
		Status:        saga.Status.String(),
		CurrentStep:   saga.CurrentStep.String(),
		PaymentID:     optional(saga.PaymentID),
		ReservationID: optional(saga.ReservationID),
		FailureReason: saga.FailureReason,
		Attempts:      saga.Attempts,
		Version:       saga.Version.Value,
		CreatedAt:     saga.Timestamps.CreatedAt,
		UpdatedAt:     saga.Timestamps.UpdatedAt,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetOrderQuery represents the query to get a saga
type GetOrderQuery struct {
	OrderID string `json:"orderId"`
}

// GetOrder use case
type GetOrder struct {
	sagaRepository domain.SagaRepository
}

// NewGetOrder creates a new GetOrder use case
func NewGetOrder(sagaRepository domain.SagaRepository) *GetOrder {
	return &GetOrder{
		sagaRepository: sagaRepository,
	}
}

// Execute executes the get order use case. An orderId that is not a UUID
// cannot exist, so it is reported as not found.
func (uc *GetOrder) Execute(ctx context.Context, query *GetOrderQuery) (*OrderSagaDTO, error) {
	if query.OrderID == "" {
		return nil, invalidRequest("orderId is required")
	}

	orderID, err := models.NewID(query.OrderID)
	if err != nil {
		return nil, newError(CodeOrderNotFound, "order not found: "+query.OrderID, domain.ErrSagaNotFound)
	}

	saga, err := uc.sagaRepository.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, newError(CodeInternalError, "failed to find order", errors.Wrap(err, "failed to find saga"))
	}

	if saga == nil {
		return nil, newError(CodeOrderNotFound, "order not found: "+query.OrderID, domain.ErrSagaNotFound)
	}

	return NewOrderSagaDTO(saga), nil
}
