package application

import (
	"context"
	"testing"
	"time"

	"github.com/draftea/order-saga/orchestrator-service/domain"
	"github.com/draftea/order-saga/orchestrator-service/mocks"
	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/locker"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func staleSaga(t *testing.T, status domain.SagaStatus, attempts int, age time.Duration) *domain.OrderSaga {
	t.Helper()

	saga := sagaIn(t, status)
	saga.Attempts = attempts
	saga.Timestamps.UpdatedAt = models.Now().Add(-age)
	return saga
}

func TestReconcileSagas_Execute(t *testing.T) {
	tests := []struct {
		name            string
		saga            func(t *testing.T) *domain.OrderSaga
		expectSave      func(saga *domain.OrderSaga) bool
		expectedChanged int
	}{
		{
			name: "payment command is issued again",
			saga: func(t *testing.T) *domain.OrderSaga {
				return staleSaga(t, domain.SagaStatusOrderCreated, 1, 5*time.Minute)
			},
			expectSave: func(saga *domain.OrderSaga) bool {
				evts := saga.Events()
				return saga.Status == domain.SagaStatusOrderCreated &&
					saga.Attempts == 2 &&
					len(evts) == 1 &&
					evts[0].Topic == events.TopicPaymentEvents
			},
			expectedChanged: 1,
		},
		{
			name: "inventory command is issued again",
			saga: func(t *testing.T) *domain.OrderSaga {
				return staleSaga(t, domain.SagaStatusPaymentProcessed, 2, 5*time.Minute)
			},
			expectSave: func(saga *domain.OrderSaga) bool {
				evts := saga.Events()
				return saga.Status == domain.SagaStatusPaymentProcessed &&
					saga.Attempts == 3 &&
					len(evts) == 1 &&
					evts[0].Topic == events.TopicInventoryEvents
			},
			expectedChanged: 1,
		},
		{
			name: "payment never answered fails the saga",
			saga: func(t *testing.T) *domain.OrderSaga {
				return staleSaga(t, domain.SagaStatusOrderCreated, 3, 5*time.Minute)
			},
			expectSave: func(saga *domain.OrderSaga) bool {
				return saga.Status == domain.SagaStatusFailed &&
					saga.FailureReason != "" &&
					len(saga.Events()) == 0
			},
			expectedChanged: 1,
		},
		{
			name: "inventory never answered refunds the payment",
			saga: func(t *testing.T) *domain.OrderSaga {
				return staleSaga(t, domain.SagaStatusPaymentProcessed, 3, 5*time.Minute)
			},
			expectSave: func(saga *domain.OrderSaga) bool {
				evts := saga.Events()
				return saga.Status == domain.SagaStatusCompensated &&
					len(evts) == 1 &&
					evts[0].Topic == events.TopicCompensatePayment
			},
			expectedChanged: 1,
		},
		{
			name: "saga answered after listing is left alone",
			saga: func(t *testing.T) *domain.OrderSaga {
				return staleSaga(t, domain.SagaStatusCompleted, 1, 5*time.Minute)
			},
			expectedChanged: 0,
		},
		{
			name: "recently touched saga is left alone",
			saga: func(t *testing.T) *domain.OrderSaga {
				return staleSaga(t, domain.SagaStatusOrderCreated, 1, time.Second)
			},
			expectedChanged: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := mocks.NewMockSagaRepository(t)
			mockNotifier := mocks.NewMockOutboxNotifier(t)

			saga := tt.saga(t)
			mockRepo.EXPECT().ListStale(mock.Anything, domain.AwaitingParticipant(), mock.AnythingOfType("time.Time")).
				Return([]*domain.OrderSaga{saga.Clone()}, nil).Once()
			mockRepo.EXPECT().FindByOrderID(mock.Anything, saga.OrderID).Return(saga, nil).Once()
			if tt.expectSave != nil {
				mockRepo.EXPECT().Save(mock.Anything, mock.MatchedBy(tt.expectSave)).Return(nil).Once()
				mockNotifier.EXPECT().Notify().Return().Once()
			}

			useCase := NewReconcileSagas(mockRepo, locker.NewKeyedMutex(), mockNotifier, retry.NoRetry(), ReconcileConfig{
				Interval:    time.Second,
				StepTimeout: time.Minute,
				MaxAttempts: 3,
			}, logging.Nop())

			changed, err := useCase.Execute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedChanged, changed)
		})
	}
}

func TestReconcileSagas_ContinuesPastFailures(t *testing.T) {
	mockRepo := mocks.NewMockSagaRepository(t)
	mockNotifier := mocks.NewMockOutboxNotifier(t)

	broken := staleSaga(t, domain.SagaStatusOrderCreated, 1, 5*time.Minute)
	healthy := staleSaga(t, domain.SagaStatusPaymentProcessed, 1, 5*time.Minute)

	mockRepo.EXPECT().ListStale(mock.Anything, mock.Anything, mock.Anything).
		Return([]*domain.OrderSaga{broken.Clone(), healthy.Clone()}, nil).Once()
	mockRepo.EXPECT().FindByOrderID(mock.Anything, broken.OrderID).Return(nil, errors.New("database error")).Once()
	mockRepo.EXPECT().FindByOrderID(mock.Anything, healthy.OrderID).Return(healthy, nil).Once()
	mockRepo.EXPECT().Save(mock.Anything, mock.AnythingOfType("*domain.OrderSaga")).Return(nil).Once()
	mockNotifier.EXPECT().Notify().Return().Once()

	useCase := NewReconcileSagas(mockRepo, locker.NewKeyedMutex(), mockNotifier, retry.NoRetry(), DefaultReconcileConfig(), logging.Nop())

	changed, err := useCase.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
}

func TestReconcileSagas_ListFailure(t *testing.T) {
	mockRepo := mocks.NewMockSagaRepository(t)
	mockRepo.EXPECT().ListStale(mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("database error")).Once()

	useCase := NewReconcileSagas(mockRepo, locker.NewKeyedMutex(), mocks.NewMockOutboxNotifier(t), retry.NoRetry(), ReconcileConfig{}, logging.Nop())

	_, err := useCase.Execute(context.Background())
	assert.ErrorContains(t, err, "failed to list stale sagas")
}
