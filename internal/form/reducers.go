package form

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
)

// Field is the path of a scalar draft field.
type Field string

// Scalar field paths accepted by SetField.
const (
	FieldName        Field = "name"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldInstitution Field = "education.institution"
	FieldDegree      Field = "education.degree"
	FieldYear        Field = "education.year"
)

// ExperienceField names one editable field of an experience entry.
type ExperienceField string

// Experience entry fields accepted by SetExperienceField.
const (
	ExperienceCompany     ExperienceField = "company"
	ExperiencePosition    ExperienceField = "position"
	ExperiencePeriod      ExperienceField = "period"
	ExperienceDescription ExperienceField = "description"
)

// IDFunc generates experience entry identifiers.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewDraft returns the default draft: empty strings, bachelor degree,
// exactly one blank experience entry and no skills.
func NewDraft(newID IDFunc) types.Resume {
	if newID == nil {
		newID = NewID
	}
	return types.Resume{
		Education: types.Education{
			Degree: types.DefaultDegree,
		},
		Experience: []types.ExperienceEntry{{ID: newID()}},
		Skills:     []string{},
	}
}

// SetField returns a copy of r with the scalar field at path set to value.
func SetField(r types.Resume, path Field, value string) (types.Resume, error) {
	out := r.Clone()
	switch path {
	case FieldName:
		out.Name = value
	case FieldEmail:
		out.Email = value
	case FieldPhone:
		out.Phone = value
	case FieldInstitution:
		out.Education.Institution = value
	case FieldDegree:
		out.Education.Degree = types.Degree(value)
	case FieldYear:
		out.Education.Year = value
	default:
		return r, &UnknownFieldError{Path: string(path)}
	}
	return out, nil
}

// SetPhoto returns a copy of r with the photo reference replaced. nil clears it.
func SetPhoto(r types.Resume, ref *types.PhotoRef) types.Resume {
	out := r.Clone()
	if ref == nil {
		out.Photo = nil
		return out
	}
	p := *ref
	out.Photo = &p
	return out
}

// AddExperience returns a copy of r with a blank entry appended.
func AddExperience(r types.Resume, id string) types.Resume {
	out := r.Clone()
	out.Experience = append(out.Experience, types.ExperienceEntry{ID: id})
	return out
}

// RemoveExperience returns a copy of r without the entry with the given id.
// An unknown id leaves the sequence unchanged. Removing the last entry is allowed here.
func RemoveExperience(r types.Resume, id string) types.Resume {
	out := r.Clone()
	out.Experience = slices.DeleteFunc(out.Experience, func(e types.ExperienceEntry) bool {
		return e.ID == id
	})
	return out
}

// SetExperienceField returns a copy of r with one field of the entry id replaced.
// An unknown id is a no-op; an unknown field is an error.
func SetExperienceField(r types.Resume, id string, field ExperienceField, value string) (types.Resume, error) {
	switch field {
	case ExperienceCompany, ExperiencePosition, ExperiencePeriod, ExperienceDescription:
	default:
		return r, &UnknownFieldError{Path: "experience." + string(field)}
	}

	i := r.FindExperience(id)
	if i < 0 {
		return r.Clone(), nil
	}

	out := r.Clone()
	entry := &out.Experience[i]
	switch field {
	case ExperienceCompany:
		entry.Company = value
	case ExperiencePosition:
		entry.Position = value
	case ExperiencePeriod:
		entry.Period = value
	case ExperienceDescription:
		entry.Description = value
	}
	return out, nil
}

// AddSkill returns a copy of r with the trimmed text appended, unless it is
// empty or already present (exact match).
func AddSkill(r types.Resume, text string) types.Resume {
	out := r.Clone()
	skill := validation.TrimInput(text)
	if skill == "" || out.HasSkill(skill) {
		return out
	}
	out.Skills = append(out.Skills, skill)
	return out
}

// RemoveSkill returns a copy of r without the skill at index. Out of range is a no-op.
func RemoveSkill(r types.Resume, index int) types.Resume {
	out := r.Clone()
	if index < 0 || index >= len(out.Skills) {
		return out
	}
	out.Skills = slices.Delete(out.Skills, index, index+1)
	return out
}
