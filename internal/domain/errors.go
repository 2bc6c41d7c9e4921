package domain

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflicting terminal status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrProviderRejected    = errors.New("provider rejected request")
	ErrInvalidSignature    = errors.New("invalid callback signature")
	ErrMalformedPayload    = errors.New("malformed callback payload")
	ErrDuplicateOperation  = errors.New("duplicate operation")
)
