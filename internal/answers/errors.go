package answers

import "errors"

var (
	ErrNotFound     = errors.New("answer not found")
	ErrUnknownBlank = errors.New("unknown blank")
	ErrInvalidInput = errors.New("invalid input")
)
