package negotiation

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("booking not found")
	ErrInvalidState = errors.New("operation not allowed in current booking state")
	ErrForbidden    = errors.New("principal is not a party of this booking")
	ErrPrecondition = errors.New("precondition not met")
)
