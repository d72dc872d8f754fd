package index

import "errors"

var (
	// ErrEmptyVector indicates a zero-length vector was passed to an
	// index operation.
	ErrEmptyVector = errors.New("empty vector")
)
