package session

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("session not found")

// ModeError is returned when an operation is not available in the current mode.
type ModeError struct {
	Op   string
	Mode string
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Op, e.Mode)
}
