// Package types provides type definitions for structured data used throughout the resume-builder system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Degree is the stored code of an education level.
type Degree string

// Known degree codes. The form offers only these, but stored values are not restricted.
const (
	DegreeSecondary Degree = "secondary"
	DegreeBachelor  Degree = "bachelor"
	DegreeMaster    Degree = "master"
	DegreePhD       Degree = "phd"
)

// DefaultDegree is the degree a fresh draft starts with.
const DefaultDegree = DegreeBachelor

// Degrees returns the known degree codes in display order.
func Degrees() []Degree {
	return []Degree{DegreeSecondary, DegreeBachelor, DegreeMaster, DegreePhD}
}

// PhotoRef is an opaque reference to a user-selected image held by the photo store.
type PhotoRef struct {
	ID          string `json:"id"`
	Filename    string `json:"filename,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Education is the single education record of a resume.
type Education struct {
	Institution string `json:"institution"`
	Degree      Degree `json:"degree"`
	Year        string `json:"year"`
}

// ExperienceEntry is one work-experience record. ID is stable for the entry's lifetime.
type ExperienceEntry struct {
	ID          string `json:"id"`
	Company     string `json:"company"`
	Position    string `json:"position"`
	Period      string `json:"period"`
	Description string `json:"description"`
}

// Resume is the data collected by the form. A Resume owned by a form is the draft;
// a Snapshot wraps a frozen copy of one.
type Resume struct {
	Name       string            `json:"name"`
	Photo      *PhotoRef         `json:"photo,omitempty"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone"`
	Education  Education         `json:"education"`
	Experience []ExperienceEntry `json:"experience"`
	Skills     []string          `json:"skills"`
}

// Clone returns a deep copy that shares no slices or pointers with r.
func (r Resume) Clone() Resume {
	out := r
	if r.Photo != nil {
		p := *r.Photo
		out.Photo = &p
	}
	out.Experience = slices.Clone(r.Experience)
	out.Skills = slices.Clone(r.Skills)
	if out.Experience == nil {
		out.Experience = []ExperienceEntry{}
	}
	if out.Skills == nil {
		out.Skills = []string{}
	}
	return out
}

// FindExperience returns the index of the entry with the given id, or -1.
func (r Resume) FindExperience(id string) int {
	return slices.IndexFunc(r.Experience, func(e ExperienceEntry) bool { return e.ID == id })
}

// HasSkill reports whether skill is already present (exact, case-sensitive match).
func (r Resume) HasSkill(skill string) bool {
	return slices.Contains(r.Skills, skill)
}

// ValidationState holds the submit-time validation flags of a form.
type ValidationState struct {
	NameInvalid  bool `json:"name_invalid"`
	EmailInvalid bool `json:"email_invalid"`
}

// Valid reports whether no flag is set.
func (v ValidationState) Valid() bool {
	return !v.NameInvalid && !v.EmailInvalid
}

// Snapshot is the immutable resume produced by a successful submit.
// The zero value is an empty snapshot; use NewSnapshot to build one.
type Snapshot struct {
	resume    Resume
	createdAt time.Time
}

// NewSnapshot freezes a copy of r.
func NewSnapshot(r Resume) Snapshot {
	return Snapshot{resume: r.Clone(), createdAt: time.Now().UTC()}
}

// Resume returns a copy of the frozen data. Mutating the copy does not affect the snapshot.
func (s Snapshot) Resume() Resume {
	return s.resume.Clone()
}

// CreatedAt returns when the snapshot was taken.
func (s Snapshot) CreatedAt() time.Time {
	return s.createdAt
}

// Photo returns a copy of the photo reference, or nil.
func (s Snapshot) Photo() *PhotoRef {
	if s.resume.Photo == nil {
		return nil
	}
	p := *s.resume.Photo
	return &p
}

// IsZero reports whether s was never created by NewSnapshot or ParseSnapshot.
func (s Snapshot) IsZero() bool {
	return s.createdAt.IsZero()
}

type snapshotJSON struct {
	Resume
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON encodes the snapshot as its resume fields plus created_at.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{Resume: s.resume.Clone(), CreatedAt: s.createdAt})
}

// ParseSnapshot decodes a snapshot previously produced by MarshalJSON.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var raw snapshotJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot JSON: %w", err)
	}
	createdAt := raw.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return Snapshot{resume: raw.Resume.Clone(), createdAt: createdAt}, nil
}
