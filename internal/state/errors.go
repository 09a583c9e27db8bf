package state

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnknownParent   = errors.New("unknown parent category")
	ErrUnknownTax      = errors.New("unknown tax")
	ErrUnknownItem     = errors.New("unknown item")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderClosed     = errors.New("order already charged")
	ErrPaymentMismatch = errors.New("payment does not match order total")
)
