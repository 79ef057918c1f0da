package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrUnsupported   = errors.New("direct link not supported")
	ErrConnFailed    = errors.New("connection failed")
	ErrInvalidConfig = errors.New("invalid backend configuration")
)

// WrapError adds backend and operation context to an error.
func WrapError(kind, operation string, err error) error {
	return fmt.Errorf("%s (%s): %w", operation, kind, err)
}
