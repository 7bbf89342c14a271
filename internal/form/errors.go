package form

import (
	"errors"
	"fmt"
)

// ErrFormSubmitted is returned by mutators once the form has emitted its snapshot.
var ErrFormSubmitted = errors.New("form already submitted")

// UnknownFieldError is returned when an update targets a field path the draft does not have.
type UnknownFieldError struct {
	Path string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field: %s", e.Path)
}
