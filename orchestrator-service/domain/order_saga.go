package domain

import (
	"fmt"

	"github.com/draftea/order-saga/shared/events"
	"github.com/draftea/order-saga/shared/models"
	"github.com/pkg/errors"
)

// SagaStatus represents where a saga is in the workflow
type SagaStatus string

const (
	SagaStatusPending           SagaStatus = "PENDING"
	SagaStatusOrderCreated      SagaStatus = "ORDER_CREATED"
	SagaStatusPaymentProcessed  SagaStatus = "PAYMENT_PROCESSED"
	SagaStatusInventoryReserved SagaStatus = "INVENTORY_RESERVED"
	SagaStatusCompleted         SagaStatus = "COMPLETED"
	SagaStatusFailed            SagaStatus = "FAILED"
	SagaStatusCompensating      SagaStatus = "COMPENSATING"
	SagaStatusCompensated       SagaStatus = "COMPENSATED"
)

func (s SagaStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the forward flow is over
func (s SagaStatus) IsTerminal() bool {
	switch s {
	case SagaStatusCompleted, SagaStatusCompensated, SagaStatusFailed:
		return true
	}
	return false
}

// AwaitingParticipant lists the statuses in which a command is outstanding
func AwaitingParticipant() []SagaStatus {
	return []SagaStatus{SagaStatusOrderCreated, SagaStatusPaymentProcessed}
}

// SagaStep is the step the coordinator is working on
type SagaStep string

const (
	SagaStepCreateOrder      SagaStep = "CREATE_ORDER"
	SagaStepProcessPayment   SagaStep = "PROCESS_PAYMENT"
	SagaStepReserveInventory SagaStep = "RESERVE_INVENTORY"
	SagaStepCompleteOrder    SagaStep = "COMPLETE_ORDER"
)

func (s SagaStep) String() string {
	return string(s)
}

// ResultOutcome tells the caller what a participant result did to the saga
type ResultOutcome string

const (
	// OutcomeApplied means the saga changed and must be saved
	OutcomeApplied ResultOutcome = "applied"
	// OutcomeDuplicate means the result was already accounted for
	OutcomeDuplicate ResultOutcome = "duplicate"
	// OutcomeOrphaned means the result reserved a resource the saga will never
	// use; only a compensating command was recorded
	OutcomeOrphaned ResultOutcome = "orphaned"
)

// OrderSaga aggregate root, one per order
type OrderSaga struct {
	OrderID       models.ID
	CustomerID    string
	ProductID     string
	Quantity      int
	Amount        float64
	Status        SagaStatus
	CurrentStep   SagaStep
	PaymentID     string
	ReservationID string
	FailureReason string
	Attempts      int
	Timestamps    models.Timestamps
	Version       models.Version

	events  []*events.Event
	changes []StatusChange
}

// NewOrderSaga creates a PENDING saga with a fresh orderId. Only presence of
// the identifiers is checked.
func NewOrderSaga(customerID, productID string, quantity int, amount float64) (*OrderSaga, error) {
	if customerID == "" {
		return nil, errors.Wrap(ErrMissingField, "customerId is required")
	}
	if productID == "" {
		return nil, errors.Wrap(ErrMissingField, "productId is required")
	}

	saga := &OrderSaga{
		OrderID:     models.GenerateUUID(),
		CustomerID:  customerID,
		ProductID:   productID,
		Quantity:    quantity,
		Amount:      amount,
		Status:      SagaStatusPending,
		CurrentStep: SagaStepCreateOrder,
		Timestamps:  models.NewTimestamps(),
		Version:     models.NewVersion(),
	}

	saga.changes = append(saga.changes, StatusChange{
		To:   SagaStatusPending,
		Step: SagaStepCreateOrder,
		At:   saga.Timestamps.CreatedAt,
	})

	return saga, nil
}

// Start moves a new saga to ORDER_CREATED and records the order-created
// notification followed by the payment command.
func (s *OrderSaga) Start() error {
	if err := s.apply(TriggerOrderCreated); err != nil {
		return err
	}
	s.Attempts = 1

	s.recordEvent(events.TopicOrderEvents, events.OrderCreated{
		OrderID:    s.OrderID.String(),
		CustomerID: s.CustomerID,
		ProductID:  s.ProductID,
		Quantity:   s.Quantity,
		Amount:     s.Amount,
	})
	s.recordEvent(events.TopicPaymentEvents, s.paymentCommand())

	return nil
}

// RecordPaymentResult advances the saga with the payment participant's reply
func (s *OrderSaga) RecordPaymentResult(result events.PaymentResult) (ResultOutcome, error) {
	if result.Success && result.PaymentID == "" {
		return "", errors.Wrap(ErrInvalidResult, "successful payment without paymentId")
	}

	if s.Status != SagaStatusOrderCreated {
		if result.Success && result.PaymentID != s.PaymentID {
			s.recordOrphan(events.TopicCompensatePayment, result.PaymentID, events.CompensatePayment{
				OrderID:   s.OrderID.String(),
				PaymentID: result.PaymentID,
			})
			return OutcomeOrphaned, nil
		}
		return OutcomeDuplicate, nil
	}

	if !result.Success {
		if err := s.apply(TriggerPaymentFailed); err != nil {
			return "", err
		}
		s.FailureReason = result.Message
		return OutcomeApplied, nil
	}

	if err := s.apply(TriggerPaymentSucceeded); err != nil {
		return "", err
	}
	s.PaymentID = result.PaymentID
	s.Attempts = 1
	s.recordEvent(events.TopicInventoryEvents, s.inventoryCommand())

	return OutcomeApplied, nil
}

// RecordInventoryResult advances the saga with the inventory participant's
// reply. A failed reservation compensates every completed step.
func (s *OrderSaga) RecordInventoryResult(result events.InventoryResult) (ResultOutcome, error) {
	if result.Success && result.ReservationID == "" {
		return "", errors.Wrap(ErrInvalidResult, "successful reservation without reservationId")
	}

	if s.Status != SagaStatusPaymentProcessed {
		if result.Success && result.ReservationID != s.ReservationID {
			s.recordOrphan(events.TopicCompensateInventory, result.ReservationID, events.CompensateInventory{
				OrderID:       s.OrderID.String(),
				ReservationID: result.ReservationID,
			})
			return OutcomeOrphaned, nil
		}
		return OutcomeDuplicate, nil
	}

	if !result.Success {
		if err := s.apply(TriggerInventoryFailed); err != nil {
			return "", err
		}
		if err := s.Compensate(result.Message); err != nil {
			return "", err
		}
		return OutcomeApplied, nil
	}

	if err := s.apply(TriggerInventoryReserved); err != nil {
		return "", err
	}
	s.ReservationID = result.ReservationID

	if err := s.apply(TriggerOrderCompleted); err != nil {
		return "", err
	}

	return OutcomeApplied, nil
}

// Compensate records the undo command of every completed step and marks the
// saga COMPENSATED. Compensations are not acknowledged.
func (s *OrderSaga) Compensate(reason string) error {
	if s.Status != SagaStatusCompensating {
		return errors.Wrapf(ErrInvalidTransition, "compensation requires status %s, saga is %s", SagaStatusCompensating, s.Status)
	}

	s.FailureReason = reason

	if s.PaymentID != "" {
		s.recordEvent(events.TopicCompensatePayment, events.CompensatePayment{
			OrderID:   s.OrderID.String(),
			PaymentID: s.PaymentID,
		})
	}

	if s.ReservationID != "" {
		s.recordEvent(events.TopicCompensateInventory, events.CompensateInventory{
			OrderID:       s.OrderID.String(),
			ReservationID: s.ReservationID,
		})
	}

	return s.apply(TriggerCompensationIssued)
}

// HandleStepTimeout is called when no participant reply arrived in time.
// The outstanding command is issued again until maxAttempts is reached,
// after which the saga fails (no payment yet) or is compensated.
func (s *OrderSaga) HandleStepTimeout(maxAttempts int) error {
	if s.Status != SagaStatusOrderCreated && s.Status != SagaStatusPaymentProcessed {
		return errors.Wrapf(ErrInvalidTransition, "no outstanding step in status %s", s.Status)
	}

	if s.Attempts < maxAttempts {
		if err := s.apply(TriggerStepRetried); err != nil {
			return err
		}
		s.Attempts++
		if s.Status == SagaStatusOrderCreated {
			s.recordEvent(events.TopicPaymentEvents, s.paymentCommand())
		} else {
			s.recordEvent(events.TopicInventoryEvents, s.inventoryCommand())
		}
		return nil
	}

	reason := fmt.Sprintf("%s timed out after %d attempts", s.CurrentStep, s.Attempts)
	if err := s.apply(TriggerStepExpired); err != nil {
		return err
	}

	if s.Status == SagaStatusFailed {
		s.FailureReason = reason
		return nil
	}

	return s.Compensate(reason)
}

// Changes returns the transitions applied since the saga was created or loaded
func (s *OrderSaga) Changes() []StatusChange {
	return s.changes
}

// Events returns the uncommitted events
func (s *OrderSaga) Events() []*events.Event {
	return s.events
}

// ClearEvents clears the uncommitted events
func (s *OrderSaga) ClearEvents() {
	s.events = nil
}

// Clone returns a copy without uncommitted events or recorded changes
func (s *OrderSaga) Clone() *OrderSaga {
	clone := *s
	clone.events = nil
	clone.changes = nil
	return &clone
}

func (s *OrderSaga) apply(trigger Trigger) error {
	next, err := nextState(s.Status, trigger)
	if err != nil {
		return err
	}

	change := StatusChange{
		From:    s.Status,
		To:      next.to,
		Step:    s.CurrentStep,
		Trigger: trigger,
	}

	s.Status = next.to
	if next.step != "" {
		s.CurrentStep = next.step
		change.Step = next.step
	}
	s.Timestamps = s.Timestamps.Update()
	change.At = s.Timestamps.UpdatedAt

	s.changes = append(s.changes, change)
	return nil
}

func (s *OrderSaga) paymentCommand() events.PaymentCommand {
	return events.PaymentCommand{
		OrderID:    s.OrderID.String(),
		CustomerID: s.CustomerID,
		Amount:     s.Amount,
	}
}

func (s *OrderSaga) inventoryCommand() events.InventoryCommand {
	return events.InventoryCommand{
		OrderID:   s.OrderID.String(),
		ProductID: s.ProductID,
		Quantity:  s.Quantity,
	}
}

// recordEvent records an outbound message keyed by orderId
func (s *OrderSaga) recordEvent(topic events.Topic, data interface{}) {
	event := events.NewEvent(s.OrderID, topic, data).WithCorrelationID(s.OrderID)
	s.events = append(s.events, event)
}

// recordOrphan records the undo of a resource the saga never kept. The event
// ID is derived from the resource, so redelivered results map to one command.
func (s *OrderSaga) recordOrphan(topic events.Topic, resourceID string, data interface{}) {
	event := events.NewEvent(s.OrderID, topic, data).WithCorrelationID(s.OrderID)
	event.ID = models.DeriveID(s.OrderID, topic.String()+"/"+resourceID)
	s.events = append(s.events, event)
}
