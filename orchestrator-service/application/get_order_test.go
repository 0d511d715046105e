package application

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/orchestrator-service/mocks"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetOrder_Execute(t *testing.T) {
	completed := sagaIn(t, domain.SagaStatusCompleted)
	missing := models.GenerateUUID()

	tests := []struct {
		name         string
		orderID      string
		setupMocks   func(*mocks.MockSagaRepository)
		expectedCode string
	}{
		{
			name:    "found",
			orderID: completed.OrderID.String(),
			setupMocks: func(repo *mocks.MockSagaRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, completed.OrderID).Return(completed, nil).Once()
			},
		},
		{
			name:         "empty id",
			orderID:      "",
			setupMocks:   func(repo *mocks.MockSagaRepository) {},
			expectedCode: CodeInvalidRequest,
		},
		{
			name:         "malformed id",
			orderID:      "order-1",
			setupMocks:   func(repo *mocks.MockSagaRepository) {},
			expectedCode: CodeOrderNotFound,
		},
		{
			name:    "unknown id",
			orderID: missing.String(),
			setupMocks: func(repo *mocks.MockSagaRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, missing).Return(nil, nil).Once()
			},
			expectedCode: CodeOrderNotFound,
		},
		{
			name:    "repository error",
			orderID: missing.String(),
			setupMocks: func(repo *mocks.MockSagaRepository) {
				repo.EXPECT().FindByOrderID(mock.Anything, missing).Return(nil, errors.New("database error")).Once()
			},
			expectedCode: CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockSagaRepository(t)
			tt.setupMocks(mockRepo)

			result, err := NewGetOrder(mockRepo).Execute(context.Background(), &GetOrderQuery{OrderID: tt.orderID})

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, CodeOf(err))
				assert.Nil(t, result)
				if tt.expectedCode == CodeOrderNotFound {
					assert.ErrorIs(t, err, domain.ErrSagaNotFound)
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, completed.OrderID.String(), result.OrderID)
			assert.Equal(t, "COMPLETED", result.Status)
			assert.Equal(t, "COMPLETE_ORDER", result.CurrentStep)
			require.NotNil(t, result.PaymentID)
			assert.Equal(t, "PAY1", *result.PaymentID)
			require.NotNil(t, result.ReservationID)
			assert.Equal(t, "RES1", *result.ReservationID)
		})
	}
}

func TestOrderSagaDTO_JSON(t *testing.T) {
	saga := sagaIn(t, domain.SagaStatusFailed)

	raw, err := json.Marshal(NewOrderSagaDTO(saga))
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))

	assert.Equal(t, "FAILED", body["status"])
	assert.Equal(t, "C1", body["customerId"])
	assert.Equal(t, 20.0, body["amount"])
	assert.Equal(t, "Insufficient funds", body["failureReason"])
	assert.Contains(t, body, "paymentId")
	assert.Nil(t, body["paymentId"])
	assert.Nil(t, body["reservationId"])
}

func TestListOrders_Execute(t *testing.T) {
	t.Run("returns every saga", func(t *testing.T) {
		mockRepo := mocks.NewMockSagaRepository(t)
		first := sagaIn(t, domain.SagaStatusOrderCreated)
		second := sagaIn(t, domain.SagaStatusCompensated)
		mockRepo.EXPECT().List(mock.Anything).Return([]*domain.OrderSaga{first, second}, nil).Once()

		result, err := NewListOrders(mockRepo).Execute(context.Background())
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, first.OrderID.String(), result[0].OrderID)
		assert.Equal(t, "COMPENSATED", result[1].Status)
	})

	t.Run("empty store", func(t *testing.T) {
		mockRepo := mocks.NewMockSagaRepository(t)
		mockRepo.EXPECT().List(mock.Anything).Return(nil, nil).Once()

		result, err := NewListOrders(mockRepo).Execute(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("repository error", func(t *testing.T) {
		mockRepo := mocks.NewMockSagaRepository(t)
		mockRepo.EXPECT().List(mock.Anything).Return(nil, errors.New("database error")).Once()

		_, err := NewListOrders(mockRepo).Execute(context.Background())
		assert.Equal(t, CodeInternalError, CodeOf(err))
	})
}
