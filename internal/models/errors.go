package models

import "errors"

// Domain error kinds surfaced to callers. The HTTP layer maps these to
// status codes; anything else is reported as a generic server error.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrLoanClosed          = errors.New("loan is closed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
