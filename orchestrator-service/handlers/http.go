package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/draftea/order-saga/orchestrator-service/application"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	startSaga  *application.StartSaga
	getOrder   *application.GetOrder
	listOrders *application.ListOrders
	logger     zerolog.Logger
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	startSaga *application.StartSaga,
	getOrder *application.GetOrder,
	listOrders *application.ListOrders,
	logger zerolog.Logger,
) *OrderHandlers {
	return &OrderHandlers{
		startSaga:  startSaga,
		getOrder:   getOrder,
		listOrders: listOrders,
		logger:     logger,
	}
}

// CreateOrder starts a saga and answers before any participant is involved
func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var cmd application.StartSagaCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		h.writeError(w, http.StatusBadRequest, application.CodeInvalidRequest, "Invalid request body")
		return
	}

	response, err := h.startSaga.Execute(r.Context(), &cmd)
	if err != nil {
		h.handleError(w, err, application.CodeSagaStartFailed)
		return
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// GetOrder handles saga retrieval requests
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	query := &application.GetOrderQuery{
		OrderID: chi.URLParam(r, "orderId"),
	}

	response, err := h.getOrder.Execute(r.Context(), query)
	if err != nil {
		h.handleError(w, err, application.CodeInternalError)
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// ListOrders returns every saga
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	response, err := h.listOrders.Execute(r.Context())
	if err != nil {
		h.handleError(w, err, application.CodeInternalError)
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{orderId}", h.GetOrder)
	})
}

// handleError maps a use case error to its status. Errors without a code
// are reported under fallbackCode.
func (h *OrderHandlers) handleError(w http.ResponseWriter, err error, fallbackCode string) {
	code := fallbackCode
	message := "internal error"

	var appErr *application.Error
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	}

	status := http.StatusInternalServerError
	switch code {
	case application.CodeInvalidRequest:
		status = http.StatusBadRequest
	case application.CodeOrderNotFound:
		status = http.StatusNotFound
	default:
		h.logger.Error().Err(err).Str("code", code).Msg("request failed")
	}

	h.writeError(w, status, code, message)
}

func (h *OrderHandlers) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func (h *OrderHandlers) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write response")
	}
}
