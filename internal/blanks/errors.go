package blanks

import "errors"

var (
	ErrNotFound       = errors.New("blank not found")
	ErrInvalidCatalog = errors.New("invalid blank catalog")
)
