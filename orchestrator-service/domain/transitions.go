package domain

import (
	"time"

	"github.com/pkg/errors"
)

// Trigger is an event that moves a saga through its state machine
type Trigger string

const (
	TriggerOrderCreated       Trigger = "order.created"
	TriggerPaymentSucceeded   Trigger = "payment.succeeded"
	TriggerPaymentFailed      Trigger = "payment.failed"
	TriggerInventoryReserved  Trigger = "inventory.reserved"
	TriggerInventoryFailed    Trigger = "inventory.failed"
	TriggerOrderCompleted     Trigger = "order.completed"
	TriggerCompensationIssued Trigger = "compensation.issued"
	TriggerStepRetried        Trigger = "step.retried"
	TriggerStepExpired        Trigger = "step.expired"
)

type transitionKey struct {
	from    SagaStatus
	trigger Trigger
}

// transition is the target of a table row. An empty step leaves the
// current step unchanged.
type transition struct {
	to   SagaStatus
	step SagaStep
}

// transitions is the complete state machine. Any (status, trigger) pair
// not listed here is rejected.
var transitions = map[transitionKey]transition{
	{SagaStatusPending, TriggerOrderCreated}: {SagaStatusOrderCreated, SagaStepProcessPayment},

	{SagaStatusOrderCreated, TriggerPaymentSucceeded}: {SagaStatusPaymentProcessed, SagaStepReserveInventory},
	{SagaStatusOrderCreated, TriggerPaymentFailed}:    {SagaStatusFailed, ""},
	{SagaStatusOrderCreated, TriggerStepRetried}:      {SagaStatusOrderCreated, ""},
	{SagaStatusOrderCreated, TriggerStepExpired}:      {SagaStatusFailed, ""},

	{SagaStatusPaymentProcessed, TriggerInventoryReserved}: {SagaStatusInventoryReserved, SagaStepCompleteOrder},
	{SagaStatusPaymentProcessed, TriggerInventoryFailed}:   {SagaStatusCompensating, ""},
	{SagaStatusPaymentProcessed, TriggerStepRetried}:       {SagaStatusPaymentProcessed, ""},
	{SagaStatusPaymentProcessed, TriggerStepExpired}:       {SagaStatusCompensating, ""},

	{SagaStatusInventoryReserved, TriggerOrderCompleted}: {SagaStatusCompleted, ""},

	{SagaStatusCompensating, TriggerCompensationIssued}: {SagaStatusCompensated, ""},
}

// StatusChange records one applied transition
type StatusChange struct {
	From    SagaStatus
	To      SagaStatus
	Step    SagaStep
	Trigger Trigger
	At      time.Time
}

// CanApply reports whether trigger is allowed from status
func CanApply(status SagaStatus, trigger Trigger) bool {
	_, ok := transitions[transitionKey{status, trigger}]
	return ok
}

func nextState(from SagaStatus, trigger Trigger) (transition, error) {
	t, ok := transitions[transitionKey{from, trigger}]
	if !ok {
		return transition{}, errors.Wrapf(ErrInvalidTransition, "%s is not allowed in status %s", trigger, from)
	}
	return t, nil
}
