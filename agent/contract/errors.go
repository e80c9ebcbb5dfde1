package contract

import "errors"

var (
	ErrCompletion = errors.New("completion service failed")
	ErrValidation = errors.New("validation failed")
)
