// Package validation provides the submit-time checks applied to a resume draft.
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-builder/internal/types"
)

// Custom validator tags registered by New.
const (
	TagTrimmedRequired = "trimmed_required"
	TagResumeEmail     = "resume_email"
)

// spaceClass matches the whitespace set browsers use for \s: ASCII controls,
// every Unicode space separator, line/paragraph separators and the BOM.
const spaceClass = `\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{FEFF}`

// emailPattern is local@domain.tld: a single @, a dot after it, no whitespace.
var emailPattern = regexp.MustCompile(`^[^@` + spaceClass + `]+@[^@` + spaceClass + `]+\.[^@` + spaceClass + `]+$`)

// IsSpace reports whether r counts as whitespace for trimming form input.
func IsSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// TrimInput trims leading and trailing whitespace from user input.
func TrimInput(s string) string {
	return strings.TrimFunc(s, IsSpace)
}

// IsEmail reports whether s has the shape local@domain.tld.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// submission carries the fields that are checked on submit. Everything else
// on the draft is accepted as-is.
type submission struct {
	Name  string `validate:"trimmed_required"`
	Email string `validate:"resume_email"`
}

// Validator checks drafts on submit.
type Validator struct {
	validate *validator.Validate
}

// New creates a Validator with the resume rules registered.
func New() *Validator {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation(TagTrimmedRequired, func(fl validator.FieldLevel) bool {
		return TrimInput(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation(TagResumeEmail, func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Check derives both validation flags from the draft. Both flags are always computed.
func (v *Validator) Check(r types.Resume) types.ValidationState {
	var state types.ValidationState

	err := v.validate.Struct(submission{Name: r.Name, Email: r.Email})
	if err == nil {
		return state
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		// Only reachable if the struct itself is unusable; treat everything as invalid.
		return types.ValidationState{NameInvalid: true, EmailInvalid: true}
	}

	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Name":
			state.NameInvalid = true
		case "Email":
			state.EmailInvalid = true
		}
	}
	return state
}

// Errors converts a validation state into field errors for API responses.
func Errors(state types.ValidationState) []FieldError {
	var out []FieldError
	if state.NameInvalid {
		out = append(out, FieldError{Field: "name", Message: MessageNameRequired})
	}
	if state.EmailInvalid {
		out = append(out, FieldError{Field: "email", Message: MessageEmailInvalid})
	}
	return out
}

// AsError returns nil for a valid state and an *Error listing the invalid fields otherwise.
func AsError(state types.ValidationState) error {
	if state.Valid() {
		return nil
	}
	return &Error{Fields: Errors(state)}
}
