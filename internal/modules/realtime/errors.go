package realtime

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("booking not found")
	ErrForbidden  = errors.New("sender is not a party of this booking")
)
