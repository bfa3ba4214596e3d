package companies

import "errors"

var (
	ErrNotFound        = errors.New("company not found")
	ErrDuplicateTicker = errors.New("ticker already exists")
)
