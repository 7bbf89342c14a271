package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/resume-builder/internal/form"
	"github.com/jonathan/resume-builder/internal/photo"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/session"
	"github.com/jonathan/resume-builder/internal/validation"
)

// ErrLastExperienceEntry is returned when a removal would leave the draft without experience entries.
var ErrLastExperienceEntry = errors.New("cannot remove the only experience entry")

// ErrBadRequest indicates a malformed request
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return fmt.Sprintf("bad request: %s", e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		badRequest   *ErrBadRequest
		unknownField *form.UnknownFieldError
		modeErr      *session.ModeError
		tooLarge     *photo.TooLargeError
		maxBytes     *http.MaxBytesError
		schemaErr    *schemas.ValidationError
		invalid      *validation.Error
	)

	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &badRequest), errors.As(err, &unknownField):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, photo.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &modeErr), errors.Is(err, form.ErrFormSubmitted), errors.Is(err, ErrLastExperienceEntry):
		return http.StatusConflict
	case errors.As(err, &tooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &schemaErr), errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
