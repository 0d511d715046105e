package application

import (
	"context"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/pkg/errors"
)

// ListOrders use case
type ListOrders struct {
	sagaRepository domain.SagaRepository
}

// NewListOrders creates a new ListOrders use case
func NewListOrders(sagaRepository domain.SagaRepository) *ListOrders {
	return &ListOrders{
		sagaRepository: sagaRepository,
	}
}

// Execute returns every saga, oldest first
func (uc *ListOrders) Execute(ctx context.Context) ([]*OrderSagaDTO, error) {
	sagas, err := uc.sagaRepository.List(ctx)
	if err != nil {
		return nil, newError(CodeInternalError, "failed to list orders", errors.Wrap(err, "failed to list sagas"))
	}

	dtos := make([]*OrderSagaDTO, len(sagas))
	for i, saga := range sagas {
		dtos[i] = NewOrderSagaDTO(saga)
	}

	return dtos, nil
}
