package common

import (
	"errors"
	"fmt"
)

// Domain errors - use errors.Is() to check
var (
	ErrInternal   = errors.New("internal error")
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")

	ErrFileNotFound = fmt.Errorf("file %w", ErrNotFound)

	ErrInvalidJobID = fmt.Errorf("invalid job id: %w", ErrBadRequest)
)

// ValidationError carries a client-facing message for a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// WrapNotFound wraps an error as a not found error with context
func WrapNotFound(resource string, err error) error {
	return fmt.Errorf("%s: %w", resource, errors.Join(ErrNotFound, err))
}

// WrapInternal wraps an error as an internal error with context
func WrapInternal(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, errors.Join(ErrInternal, err))
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
