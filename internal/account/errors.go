package account

import "errors"

var (
	// ErrInsufficientFunds is returned when a withdrawal or transfer exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidOperation is returned for commands the aggregate cannot route.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrAccountNotFound is reported by read queries for unknown accounts.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidID indicates a malformed account identifier.
	ErrInvalidID = errors.New("invalid account id")

	// ErrUnknownEvent indicates a serialized event with an unrecognised type.
	ErrUnknownEvent = errors.New("unknown event type")
)
