package execution

import "errors"

var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("execution record not found")
	ErrDuplicate    = errors.New("execution record already exists for this booking")
	ErrForbidden    = errors.New("principal may not set this flag")
	ErrPrecondition = errors.New("required prior flag is still pending")
	ErrInvalidState = errors.New("booking is not in a state that allows execution tracking")
)
