package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/participants-service/domain"
	"github.com/draftea/order-saga/participants-service/mocks"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testOrderID = "6f1c9a52-7d0e-4f3b-9a55-0c7f3d2e8b11"

func TestProcessPayment_Execute(t *testing.T) {
	tests := []struct {
		name            string
		decision        bool
		expectedMessage string
	}{
		{name: "payment approved", decision: true, expectedMessage: "Payment successful"},
		{name: "payment declined", decision: false, expectedMessage: "Insufficient funds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDecider := mocks.NewMockDecider(t)
			mockPublisher := mocks.NewMockPublisher(t)

			mockDecider.EXPECT().Decide(mock.Anything, testOrderID).Return(tt.decision).Once()
			mockPublisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e *events.Event) bool {
				var result events.PaymentResult
				return e.Topic == events.TopicPaymentProcessed &&
					e.Key() == testOrderID &&
					e.CorrelationID == models.ID(testOrderID) &&
					e.UnmarshalPayload(&result) == nil &&
					result.Success == tt.decision
			})).Return(nil).Once()

			useCase := NewProcessPayment(mockDecider, mockPublisher, 0, retry.NoRetry(), logging.Nop())

			result, err := useCase.Execute(context.Background(), &events.PaymentCommand{
				OrderID:    testOrderID,
				CustomerID: "C1",
				Amount:     20.00,
			})
			require.NoError(t, err)

			assert.Equal(t, testOrderID, result.OrderID)
			assert.Equal(t, tt.decision, result.Success)
			assert.Equal(t, tt.expectedMessage, result.Message)
			if tt.decision {
				_, err := uuid.Parse(result.PaymentID)
				assert.NoError(t, err)
			} else {
				assert.Empty(t, result.PaymentID)
			}
		})
	}
}

func TestProcessPayment_Errors(t *testing.T) {
	t.Run("missing order id", func(t *testing.T) {
		useCase := NewProcessPayment(mocks.NewMockDecider(t), mocks.NewMockPublisher(t), 0, retry.NoRetry(), logging.Nop())

		_, err := useCase.Execute(context.Background(), &events.PaymentCommand{CustomerID: "C1"})
		assert.ErrorIs(t, err, domain.ErrInvalidCommand)
	})

	t.Run("publish failure", func(t *testing.T) {
		mockPublisher := mocks.NewMockPublisher(t)
		mockPublisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		useCase := NewProcessPayment(domain.FixedDecider(true), mockPublisher, 0, retry.NoRetry(), logging.Nop())

		_, err := useCase.Execute(context.Background(), &events.PaymentCommand{OrderID: testOrderID})
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("cancelled while working", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		useCase := NewProcessPayment(mocks.NewMockDecider(t), mocks.NewMockPublisher(t), time.Hour, retry.NoRetry(), logging.Nop())

		_, err := useCase.Execute(ctx, &events.PaymentCommand{OrderID: testOrderID})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestReserveInventory_Execute(t *testing.T) {
	tests := []struct {
		name            string
		decision        bool
		expectedMessage string
	}{
		{name: "stock reserved", decision: true, expectedMessage: "Inventory reserved"},
		{name: "out of stock", decision: false, expectedMessage: "Insufficient stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPublisher := mocks.NewMockPublisher(t)
			mockPublisher.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e *events.Event) bool {
				return e.Topic == events.TopicInventoryReserved && e.Key() == testOrderID
			})).Return(nil).Once()

			useCase := NewReserveInventory(domain.FixedDecider(tt.decision), mockPublisher, time.Millisecond, retry.NoRetry(), logging.Nop())

			result, err := useCase.Execute(context.Background(), &events.InventoryCommand{
				OrderID:   testOrderID,
				ProductID: "P1",
				Quantity:  2,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.decision, result.Success)
			assert.Equal(t, tt.expectedMessage, result.Message)
			assert.Equal(t, tt.decision, result.ReservationID != "")
		})
	}
}

func TestReserveInventory_RetriesPublish(t *testing.T) {
	mockPublisher := mocks.NewMockPublisher(t)
	mockPublisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()
	mockPublisher.EXPECT().Publish(mock.Anything, mock.Anything).Return(nil).Once()

	cfg := retry.Config{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, MaxTries: 3}
	useCase := NewReserveInventory(domain.FixedDecider(true), mockPublisher, 0, cfg, logging.Nop())

	result, err := useCase.Execute(context.Background(), &events.InventoryCommand{OrderID: testOrderID})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestCompensations(t *testing.T) {
	refund := NewRefundPayment(0, logging.Nop())
	release := NewReleaseInventory(0, logging.Nop())

	assert.NoError(t, refund.Execute(context.Background(), &events.CompensatePayment{OrderID: testOrderID, PaymentID: "PAY1"}))
	assert.NoError(t, release.Execute(context.Background(), &events.CompensateInventory{OrderID: testOrderID, ReservationID: "RES1"}))

	assert.ErrorIs(t, refund.Execute(context.Background(), &events.CompensatePayment{OrderID: testOrderID}), domain.ErrInvalidCommand)
	assert.ErrorIs(t, release.Execute(context.Background(), &events.CompensateInventory{ReservationID: "RES1"}), domain.ErrInvalidCommand)
}

func TestRandomDecider(t *testing.T) {
	always := domain.NewRandomDecider(1)
	never := domain.NewRandomDecider(-3)

	for i := 0; i < 100; i++ {
		assert.True(t, always.Decide(context.Background(), testOrderID))
		assert.False(t, never.Decide(context.Background(), testOrderID))
	}
	assert.Equal(t, 1.0, domain.NewRandomDecider(7).SuccessRate)
}
