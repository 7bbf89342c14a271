// Package form implements the resume draft: pure reducers and the Form controller that sequences them.
package form

import (
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
)

// Form owns one mutable draft and its validation flags until a successful submit.
// A Form is not safe for concurrent use; callers serialize events.
type Form struct {
	draft     types.Resume
	state     types.ValidationState
	newID     IDFunc
	validator *validation.Validator
	submitted bool
}

// Option configures a Form.
type Option func(*Form)

// WithIDFunc overrides how experience entry ids are generated.
func WithIDFunc(fn IDFunc) Option {
	return func(f *Form) {
		if fn != nil {
			f.newID = fn
		}
	}
}

// WithValidator shares a validator between forms.
func WithValidator(v *validation.Validator) Option {
	return func(f *Form) {
		if v != nil {
			f.validator = v
		}
	}
}

// New creates a form holding a fresh default draft.
func New(opts ...Option) *Form {
	f := &Form{newID: NewID}
	for _, opt := range opts {
		opt(f)
	}
	if f.validator == nil {
		f.validator = validation.New()
	}
	f.draft = NewDraft(f.newID)
	return f
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() types.Resume {
	return f.draft.Clone()
}

// Validation returns the current validation flags.
func (f *Form) Validation() types.ValidationState {
	return f.state
}

// Submitted reports whether the form has already emitted a snapshot.
func (f *Form) Submitted() bool {
	return f.submitted
}

// UpdateField sets a scalar field. Editing name or email clears that field's flag;
// re-validation only happens on Submit.
func (f *Form) UpdateField(path Field, value string) error {
	if f.submitted {
		return ErrFormSubmitted
	}
	next, err := SetField(f.draft, path, value)
	if err != nil {
		return err
	}
	f.draft = next

	switch path {
	case FieldName:
		f.state.NameInvalid = false
	case FieldEmail:
		f.state.EmailInvalid = false
	}
	return nil
}

// SetPhoto replaces the photo reference and returns the previous one so the caller
// can free its resources. nil clears the photo.
func (f *Form) SetPhoto(ref *types.PhotoRef) (*types.PhotoRef, error) {
	if f.submitted {
		return nil, ErrFormSubmitted
	}
	prev := f.draft.Photo
	f.draft = SetPhoto(f.draft, ref)
	return prev, nil
}

// AddExperienceEntry appends a blank entry and returns its id.
func (f *Form) AddExperienceEntry() (string, error) {
	if f.submitted {
		return "", ErrFormSubmitted
	}
	id := f.newID()
	f.draft = AddExperience(f.draft, id)
	return id, nil
}

// RemoveExperienceEntry removes the entry with the given id if present.
// It does not guard against emptying the list; see CanRemoveExperience.
func (f *Form) RemoveExperienceEntry(id string) error {
	if f.submitted {
		return ErrFormSubmitted
	}
	f.draft = RemoveExperience(f.draft, id)
	return nil
}

// CanRemoveExperience reports whether the remove control should be offered,
// which is only when more than one entry exists.
func (f *Form) CanRemoveExperience() bool {
	return len(f.draft.Experience) > 1
}

// UpdateExperienceField replaces one field of the entry id. Unknown ids are ignored.
func (f *Form) UpdateExperienceField(id string, field ExperienceField, value string) error {
	if f.submitted {
		return ErrFormSubmitted
	}
	next, err := SetExperienceField(f.draft, id, field, value)
	if err != nil {
		return err
	}
	f.draft = next
	return nil
}

// AddSkill appends the trimmed text unless it is empty or a duplicate.
func (f *Form) AddSkill(text string) error {
	if f.submitted {
		return ErrFormSubmitted
	}
	f.draft = AddSkill(f.draft, text)
	return nil
}

// RemoveSkill removes the skill at index; out of range is ignored.
func (f *Form) RemoveSkill(index int) error {
	if f.submitted {
		return ErrFormSubmitted
	}
	f.draft = RemoveSkill(f.draft, index)
	return nil
}

// Submit validates the draft and overwrites both flags. When both pass it returns
// an immutable snapshot and ok=true, after which the form accepts no more edits.
// Otherwise the draft is left untouched and ok=false.
func (f *Form) Submit() (snap types.Snapshot, ok bool, err error) {
	if f.submitted {
		return types.Snapshot{}, false, ErrFormSubmitted
	}
	f.state = f.validator.Check(f.draft)
	if !f.state.Valid() {
		return types.Snapshot{}, false, nil
	}
	f.submitted = true
	return types.NewSnapshot(f.draft), true, nil
}
