package payment

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("payment not found")
	ErrInvalidState     = errors.New("booking is not payable")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrAmountMismatch   = errors.New("amount mismatch")
)
