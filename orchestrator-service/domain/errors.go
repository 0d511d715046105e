package domain

import "github.com/pkg/errors"

var (
	// ErrInvalidTransition is returned when an event is not allowed in the saga's current status
	ErrInvalidTransition = errors.New("invalid saga transition")

	// ErrSagaNotFound is returned when a participant result names an unknown order
	ErrSagaNotFound = errors.New("saga not found")

	// ErrConcurrentUpdate is returned when the stored version moved since the saga was loaded
	ErrConcurrentUpdate = errors.New("saga was modified concurrently")

	// ErrDuplicateOrder is returned when an orderId is persisted twice
	ErrDuplicateOrder = errors.New("order already exists")

	ErrMissingField  = errors.New("required field missing")
	ErrInvalidResult = errors.New("invalid participant result")
)
