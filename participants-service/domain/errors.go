package domain

import "github.com/pkg/errors"

// ErrInvalidCommand is returned for a command no result can be produced for
var ErrInvalidCommand = errors.New("invalid participant command")

const (
	MessagePaymentSuccessful = "Payment successful"
	MessageInsufficientFunds = "Insufficient funds"
	MessageInventoryReserved = "Inventory reserved"
	MessageInsufficientStock = "Insufficient stock"
)
