package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("item not found")
	ErrAlreadyExists    = errors.New("item already exists")
	ErrAlbumNotFound    = errors.New("album not found")
	ErrAlbumNameTaken   = errors.New("an album with this name already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidToken     = errors.New("invalid pagination token")
	ErrUnprocessedItems = errors.New("some items were not processed")
	ErrCacheMiss        = errors.New("cache miss")
)

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrInvalidInput }

// Validation returns an error matching ErrInvalidInput whose message is safe
// to return to the client.
func Validation(format string, args ...any) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// ValidationMessage returns the client-safe message of a validation error
// anywhere in err's chain.
func ValidationMessage(err error) (string, bool) {
	var ve *validationError
	if errors.As(err, &ve) {
		return ve.msg, true
	}
	return "", false
}
