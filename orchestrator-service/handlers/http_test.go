package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/draftea/order-saga/orchestrator-service/application"
	"github.com/draftea/order-saga/orchestrator-service/infrastructure"
	"github.com/draftea/order-saga/orchestrator-service/mocks"
	"github.com/draftea/order-saga/shared/logging"
	"github.com/draftea/order-saga/shared/models"
	"github.com/draftea/order-saga/shared/retry"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type nopNotifier struct{}

func (nopNotifier) Notify() {}

func newRouter(h *OrderHandlers) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func newOrderHandlers(repo *infrastructure.MemorySagaRepository) *OrderHandlers {
	logger := logging.Nop()
	return NewOrderHandlers(
		application.NewStartSaga(repo, nopNotifier{}, retry.NoRetry(), logger),
		application.NewGetOrder(repo),
		application.NewListOrders(repo),
		logger,
	)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOrderHandlers_CreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "created",
			body:           `{"customerId":"C1","productId":"P1","quantity":2,"amount":20.00}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed body",
			body:           `{"customerId":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   application.CodeInvalidRequest,
		},
		{
			name:           "missing amount",
			body:           `{"customerId":"C1","productId":"P1","quantity":2}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   application.CodeInvalidRequest,
		},
		{
			name:           "missing customer",
			body:           `{"productId":"P1","quantity":2,"amount":20.00}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   application.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(newOrderHandlers(infrastructure.NewMemorySagaRepository()))

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			body := decode(t, rec)
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, body["code"])
				assert.NotEmpty(t, body["message"])
				return
			}

			assert.NotEmpty(t, body["orderId"])
			assert.Equal(t, "ORDER_CREATED", body["status"])
			assert.Equal(t, "Order saga initiated successfully", body["message"])
		})
	}
}

func TestOrderHandlers_CreateOrder_StoreFailure(t *testing.T) {
	mockRepo := mocks.NewMockSagaRepository(t)
	mockRepo.EXPECT().Create(mock.Anything, mock.Anything).Return(errors.New("database error")).Once()

	logger := logging.Nop()
	handlers := NewOrderHandlers(
		application.NewStartSaga(mockRepo, nopNotifier{}, retry.NoRetry(), logger),
		application.NewGetOrder(mockRepo),
		application.NewListOrders(mockRepo),
		logger,
	)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"customerId":"C1","productId":"P1","quantity":2,"amount":20}`))
	rec := httptest.NewRecorder()
	newRouter(handlers).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, application.CodeSagaStartFailed, body["code"])
	assert.NotContains(t, body["message"], "database error")
}

func TestOrderHandlers_GetAndList(t *testing.T) {
	repo := infrastructure.NewMemorySagaRepository()
	handlers := newOrderHandlers(repo)
	router := newRouter(handlers)

	created, err := handlers.startSaga.Execute(context.Background(), &application.StartSagaCommand{
		CustomerID: "C1",
		ProductID:  "P1",
		Quantity:   func() *int { v := 2; return &v }(),
		Amount:     func() *float64 { v := 20.0; return &v }(),
	})
	require.NoError(t, err)

	t.Run("get existing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+created.OrderID, nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body := decode(t, rec)
		assert.Equal(t, created.OrderID, body["orderId"])
		assert.Equal(t, "ORDER_CREATED", body["status"])
		assert.Equal(t, "PROCESS_PAYMENT", body["currentStep"])
		assert.Nil(t, body["paymentId"])
		assert.Equal(t, 2.0, body["quantity"])
	})

	t.Run("get unknown", func(t *testing.T) {
		for _, id := range []string{models.GenerateUUID().String(), "no-such-order"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+id, nil))

			assert.Equal(t, http.StatusNotFound, rec.Code, id)
			assert.Equal(t, application.CodeOrderNotFound, decode(t, rec)["code"])
		}
	})

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, created.OrderID, body[0]["orderId"])
	})
}
