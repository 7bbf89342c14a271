package photo

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a photo reference or handle token is unknown or already released.
var ErrNotFound = errors.New("photo not found")

// TooLargeError is returned when an upload exceeds the configured size limit.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("photo exceeds %d bytes", e.Limit)
}

// ReadError wraps a failure reading upload data.
type ReadError struct {
	Message string
	Cause   error
}

func (e *ReadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("photo read error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("photo read error: %s", e.Message)
}

func (e *ReadError) Unwrap() error {
	return e.Cause
}
