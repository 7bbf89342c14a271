// Package session implements the root controller that switches between editing and
// previewing, and the per-browser store that owns one controller per session.
package session

import (
	"log"

	"github.com/jonathan/resume-builder/internal/form"
	"github.com/jonathan/resume-builder/internal/photo"
	"github.com/jonathan/resume-builder/internal/types"
)

// Mode names.
const (
	ModeEditing = "editing"
	ModeViewing = "viewing"
)

// Mode is either Editing or Viewing.
type Mode interface {
	Name() string
	isMode()
}

// Editing means no snapshot is held and the form is mounted.
type Editing struct {
	Form *form.Form
}

// Name implements Mode.
func (Editing) Name() string { return ModeEditing }
func (Editing) isMode()      {}

// Viewing means a submitted snapshot is held and previewed. Photo is the display
// handle acquired for the preview, nil when the snapshot has no photo.
type Viewing struct {
	Snapshot types.Snapshot
	Photo    *photo.Handle
}

// Name implements Mode.
func (Viewing) Name() string { return ModeViewing }
func (Viewing) isMode()      {}

// PhotoStore is the part of the photo store the controller manages lifetimes with.
type PhotoStore interface {
	Acquire(ref *types.PhotoRef) (*photo.Handle, error)
	Release(h *photo.Handle)
	Discard(ref *types.PhotoRef)
}

// Controller owns exactly one mode at a time. Transitions hand the snapshot over
// explicitly: Submit moves it from the form into Viewing, Edit drops it.
// A Controller is not safe for concurrent use; the Store serializes access.
type Controller struct {
	mode     Mode
	photos   PhotoStore
	formOpts []form.Option
}

// NewController starts in Editing with a fresh form. photos may be nil when no
// photo uploads are expected (as in the CLI).
func NewController(photos PhotoStore, opts ...form.Option) *Controller {
	c := &Controller{photos: photos, formOpts: opts}
	c.mode = Editing{Form: form.New(opts...)}
	return c
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Form returns the mounted form.
func (c *Controller) Form() (*form.Form, error) {
	editing, ok := c.mode.(Editing)
	if !ok {
		return nil, &ModeError{Op: "form access", Mode: c.mode.Name()}
	}
	return editing.Form, nil
}

// Snapshot returns the held snapshot and its photo handle.
func (c *Controller) Snapshot() (types.Snapshot, *photo.Handle, error) {
	viewing, ok := c.mode.(Viewing)
	if !ok {
		return types.Snapshot{}, nil, &ModeError{Op: "snapshot access", Mode: c.mode.Name()}
	}
	return viewing.Snapshot, viewing.Photo, nil
}

// SetPhoto replaces the draft's photo and frees the one it replaces.
func (c *Controller) SetPhoto(ref *types.PhotoRef) error {
	f, err := c.Form()
	if err != nil {
		return err
	}
	prev, err := f.SetPhoto(ref)
	if err != nil {
		return err
	}
	if prev != nil && (ref == nil || prev.ID != ref.ID) && c.photos != nil {
		c.photos.Discard(prev)
	}
	return nil
}

// Submit submits the mounted form. On success the controller moves to Viewing
// and acquires a display handle for the snapshot's photo.
func (c *Controller) Submit() (types.ValidationState, bool, error) {
	f, err := c.Form()
	if err != nil {
		return types.ValidationState{}, false, err
	}

	snap, ok, err := f.Submit()
	if err != nil || !ok {
		return f.Validation(), false, err
	}

	viewing := Viewing{Snapshot: snap}
	if ref := snap.Photo(); ref != nil && c.photos != nil {
		h, err := c.photos.Acquire(ref)
		if err != nil {
			log.Printf("[session] photo %s unavailable for preview: %v", ref.ID, err)
		} else {
			viewing.Photo = h
		}
	}
	c.mode = viewing
	return f.Validation(), true, nil
}

// Edit discards the snapshot and mounts a brand-new blank form. Nothing from the
// discarded snapshot carries over.
func (c *Controller) Edit() error {
	viewing, ok := c.mode.(Viewing)
	if !ok {
		return &ModeError{Op: "edit", Mode: c.mode.Name()}
	}
	c.releaseViewing(viewing)
	c.mode = Editing{Form: form.New(c.formOpts...)}
	return nil
}

// Close frees every resource held by the current mode. The controller is left
// in Editing with a fresh form so a stray call after Close stays harmless.
func (c *Controller) Close() {
	switch m := c.mode.(type) {
	case Viewing:
		c.releaseViewing(m)
	case Editing:
		if c.photos != nil {
			c.photos.Discard(m.Form.Draft().Photo)
		}
	}
	c.mode = Editing{Form: form.New(c.formOpts...)}
}

func (c *Controller) releaseViewing(v Viewing) {
	if c.photos == nil {
		return
	}
	c.photos.Release(v.Photo)
	c.photos.Discard(v.Snapshot.Photo())
}
