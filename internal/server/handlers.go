package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/resume-builder/internal/form"
	"github.com/jonathan/resume-builder/internal/photo"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/server/middleware"
	"github.com/jonathan/resume-builder/internal/session"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
)

const (
	// formOverheadBytes is allowed on top of the photo limit for the other form fields.
	formOverheadBytes = 1 << 20
	// formMemoryBytes is how much of a multipart body is kept in memory.
	formMemoryBytes = 8 << 20
)

// HTML form actions, sent as the value of the pressed button.
const (
	actionSave             = "save"
	actionSubmit           = "submit"
	actionAddExperience    = "add_experience"
	actionRemoveExperience = "remove_experience"
	actionAddSkill         = "add_skill"
	actionRemoveSkill      = "remove_skill"
)

// stateResponse is the JSON view of a session.
type stateResponse struct {
	Mode                string                  `json:"mode"`
	Draft               *types.Resume           `json:"draft,omitempty"`
	Validation          *types.ValidationState  `json:"validation,omitempty"`
	Errors              []validation.FieldError `json:"errors,omitempty"`
	CanRemoveExperience bool                    `json:"can_remove_experience"`
	Snapshot            *types.Snapshot         `json:"snapshot,omitempty"`
	PhotoURL            string                  `json:"photo_url,omitempty"`
}

type updateFieldRequest struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

type updateExperienceRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type addSkillRequest struct {
	Skill string `json:"skill"`
}

type experienceCreatedResponse struct {
	ID string `json:"id"`
	stateResponse
}

// stateOf describes the controller's current mode.
func stateOf(c *session.Controller) stateResponse {
	switch m := c.Mode().(type) {
	case session.Editing:
		draft := m.Form.Draft()
		state := m.Form.Validation()
		return stateResponse{
			Mode:                m.Name(),
			Draft:               &draft,
			Validation:          &state,
			Errors:              validation.Errors(state),
			CanRemoveExperience: m.Form.CanRemoveExperience(),
		}
	case session.Viewing:
		snap := m.Snapshot
		return stateResponse{
			Mode:     m.Name(),
			Snapshot: &snap,
			PhotoURL: handleURL(m.Photo),
		}
	default:
		return stateResponse{Mode: c.Mode().Name()}
	}
}

func handleURL(h *photo.Handle) string {
	if h == nil {
		return ""
	}
	return h.URL
}

// withController runs fn with exclusive access to the request's session controller.
func (s *Server) withController(r *http.Request, fn func(*session.Controller) error) error {
	id, err := middleware.GetSessionID(r)
	if err != nil {
		return err
	}
	return s.sessions.Do(id, fn)
}

// mutate applies fn to the session and returns the resulting state. On failure the
// error response has already been written.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Controller) error) (stateResponse, bool) {
	var state stateResponse
	err := s.withController(r, func(c *session.Controller) error {
		if err := fn(c); err != nil {
			return err
		}
		state = stateOf(c)
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return stateResponse{}, false
	}
	return state, true
}

// onForm adapts a form operation to the mounted form of a controller.
func onForm(fn func(*form.Form) error) func(*session.Controller) error {
	return func(c *session.Controller) error {
		f, err := c.Form()
		if err != nil {
			return err
		}
		return fn(f)
	}
}

// removeExperience refuses to remove the only remaining entry.
func removeExperience(f *form.Form, id string) error {
	if f.Draft().FindExperience(id) >= 0 && !f.CanRemoveExperience() {
		return ErrLastExperienceEntry
	}
	return f.RemoveExperienceEntry(id)
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

// parseError keeps size errors intact and reports everything else as a bad request.
func parseError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return &ErrBadRequest{Message: "failed to parse form: " + err.Error()}
}

// parseForm parses a urlencoded or multipart body limited to one photo plus the form fields.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.photos.MaxBytes()+formOverheadBytes)
	// ParseForm reports urlencoded body errors that ParseMultipartForm would drop
	if err := r.ParseForm(); err != nil {
		return parseError(err)
	}
	if err := r.ParseMultipartForm(formMemoryBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return parseError(err)
	}
	return nil
}

// readPhoto stores the uploaded "photo" file. It returns nil when no file was sent.
func (s *Server) readPhoto(r *http.Request) (*types.PhotoRef, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, parseError(err)
	}
	defer file.Close()

	return s.photos.Put(header.Filename, file)
}

// handleIndex renders the form while editing and the preview while viewing.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := s.withController(r, func(c *session.Controller) error {
		switch m := c.Mode().(type) {
		case session.Editing:
			page := rendering.NewFormPage(m.Form.Draft(), m.Form.Validation(), s.photos.MaxBytes())
			return rendering.RenderFormPage(&buf, page)
		case session.Viewing:
			return rendering.RenderPreviewPage(&buf, rendering.BuildPreview(m.Snapshot, handleURL(m.Photo)))
		}
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing page: %v", err)
	}
}

// handleFormPost applies a full HTML form post: the selected photo, every field that
// changed, then the action of the pressed button. It redirects back to the page.
func (s *Server) handleFormPost(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.handleError(w, r, err)
		return
	}

	ref, err := s.readPhoto(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	action := r.PostForm.Get("action")
	if s.verbose {
		log.Printf("[form] action=%q photo=%t", action, ref != nil)
	}

	attached := false
	err = s.withController(r, func(c *session.Controller) error {
		f, err := c.Form()
		if err != nil {
			return err
		}
		if ref != nil {
			if err := c.SetPhoto(ref); err != nil {
				return err
			}
			attached = true
		}
		if err := applyFormValues(f, r.PostForm); err != nil {
			return err
		}
		return applyAction(c, f, action, r.PostForm)
	})
	if ref != nil && !attached {
		s.photos.Discard(ref)
	}
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// applyFormValues updates only the fields whose posted value differs from the draft,
// so an untouched field keeps its validation flag.
func applyFormValues(f *form.Form, values url.Values) error {
	draft := f.Draft()

	scalars := []struct {
		field   form.Field
		current string
	}{
		{form.FieldName, draft.Name},
		{form.FieldEmail, draft.Email},
		{form.FieldPhone, draft.Phone},
		{form.FieldInstitution, draft.Education.Institution},
		{form.FieldDegree, string(draft.Education.Degree)},
		{form.FieldYear, draft.Education.Year},
	}
	for _, sc := range scalars {
		value, ok := postedValue(values, string(sc.field))
		if !ok || value == sc.current {
			continue
		}
		if err := f.UpdateField(sc.field, value); err != nil {
			return err
		}
	}

	for _, entry := range draft.Experience {
		fields := []struct {
			field   form.ExperienceField
			current string
		}{
			{form.ExperienceCompany, entry.Company},
			{form.ExperiencePosition, entry.Position},
			{form.ExperiencePeriod, entry.Period},
			{form.ExperienceDescription, entry.Description},
		}
		for _, ef := range fields {
			value, ok := postedValue(values, "experience."+entry.ID+"."+string(ef.field))
			if !ok || value == ef.current {
				continue
			}
			if err := f.UpdateExperienceField(entry.ID, ef.field, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// postedValue returns the first value for key with browser line endings normalized.
func postedValue(values url.Values, key string) (string, bool) {
	vs, ok := values[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return strings.ReplaceAll(vs[0], "\r\n", "\n"), true
}

// applyAction runs the operation named by an HTML button value such as "remove_skill:2".
func applyAction(c *session.Controller, f *form.Form, action string, values url.Values) error {
	name, arg, _ := strings.Cut(action, ":")
	switch name {
	case "", actionSave:
		return nil
	case actionSubmit:
		// An invalid draft only sets the inline flags shown on the next render
		_, _, err := c.Submit()
		return err
	case actionAddExperience:
		_, err := f.AddExperienceEntry()
		return err
	case actionRemoveExperience:
		return removeExperience(f, arg)
	case actionAddSkill:
		return f.AddSkill(values.Get("skill"))
	case actionRemoveSkill:
		index, err := strconv.Atoi(arg)
		if err != nil {
			return &ErrBadRequest{Message: "invalid skill index " + strconv.Quote(arg)}
		}
		return f.RemoveSkill(index)
	default:
		return &ErrBadRequest{Message: "unknown action " + strconv.Quote(action)}
	}
}

// handleState returns the session's mode with its draft or snapshot.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, ok := s.mutate(w, r, func(*session.Controller) error { return nil })
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleUpdateField sets one scalar field of the draft.
func (s *Server) handleUpdateField(w http.ResponseWriter, r *http.Request) {
	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, ok := s.mutate(w, r, onForm(func(f *form.Form) error {
		return f.UpdateField(form.Field(req.Path), req.Value)
	}))
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleUploadPhoto replaces the draft's photo with the uploaded file.
func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	if err := s.parseForm(w, r); err != nil {
		s.handleError(w, r, err)
		return
	}

	ref, err := s.readPhoto(r)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if ref == nil {
		s.errorResponse(w, http.StatusBadRequest, "photo file is required")
		return
	}

	state, ok := s.mutate(w, r, func(c *session.Controller) error {
		return c.SetPhoto(ref)
	})
	if !ok {
		s.photos.Discard(ref)
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleAddExperience appends a blank experience entry.
func (s *Server) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	var id string
	state, ok := s.mutate(w, r, onForm(func(f *form.Form) error {
		var err error
		id, err = f.AddExperienceEntry()
		return err
	}))
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusCreated, experienceCreatedResponse{ID: id, stateResponse: state})
}

// handleUpdateExperience sets one field of an experience entry.
func (s *Server) handleUpdateExperience(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateExperienceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, ok := s.mutate(w, r, onForm(func(f *form.Form) error {
		return f.UpdateExperienceField(id, form.ExperienceField(req.Field), req.Value)
	}))
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleRemoveExperience removes an experience entry unless it is the last one.
func (s *Server) handleRemoveExperience(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	state, ok := s.mutate(w, r, onForm(func(f *form.Form) error {
		return removeExperience(f, id)
	}))
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleAddSkill appends a skill. Empty and duplicate skills are ignored.
func (s *Server) handleAddSkill(w http.ResponseWriter, r *http.Request) {
	var req addSkillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	state, ok := s.mutate(w, r, onForm(func(f *form.Form) error {
		return f.AddSkill(req.Skill)
	}))
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleRemoveSkill removes the skill at the given index. Out of range is ignored.
func (s *Server) handleRemoveSkill(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid skill index")
		return
	}

	state, ok := s.mutate(w, r, onForm(func(f *form.Form) error {
		return f.RemoveSkill(index)
	}))
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// handleSubmit validates the draft. A valid draft becomes the previewed snapshot;
// an invalid one answers 422 with the inline flags set.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	submitted := false
	state, ok := s.mutate(w, r, func(c *session.Controller) error {
		_, valid, err := c.Submit()
		submitted = valid
		return err
	})
	if !ok {
		return
	}

	status := http.StatusOK
	if !submitted {
		status = http.StatusUnprocessableEntity
	}
	s.jsonResponse(w, status, state)
}

// handleEdit drops the snapshot and starts a blank form.
func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		err := s.withController(r, func(c *session.Controller) error { return c.Edit() })
		var modeErr *session.ModeError
		if err != nil && !errors.As(err, &modeErr) {
			s.handleError(w, r, err)
			return
		}
		// Already editing (a repeated click) lands on the form too
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, ok := s.mutate(w, r, func(c *session.Controller) error { return c.Edit() })
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, state)
}

// viewedSnapshot returns the session's snapshot, or writes 409 while editing.
func (s *Server) viewedSnapshot(w http.ResponseWriter, r *http.Request) (types.Snapshot, bool) {
	var snap types.Snapshot
	err := s.withController(r, func(c *session.Controller) error {
		var err error
		snap, _, err = c.Snapshot()
		return err
	})
	if err != nil {
		s.handleError(w, r, err)
		return types.Snapshot{}, false
	}
	return snap, true
}

func setAttachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

// handleExportJSON returns the snapshot as schema-checked JSON.
func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.viewedSnapshot(w, r)
	if !ok {
		return
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	if err := schemas.ValidateSnapshot(data); err != nil {
		s.handleError(w, r, err)
		return
	}

	setAttachment(w, "application/json", "resume.json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing JSON export: %v", err)
	}
}

// handleExportLaTeX returns the snapshot rendered as a LaTeX document.
func (s *Server) handleExportLaTeX(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.viewedSnapshot(w, r)
	if !ok {
		return
	}

	tex, err := rendering.RenderLaTeX(snap, rendering.LaTeXOptions{TemplatePath: s.latexTemplate})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	setAttachment(w, "application/x-tex; charset=utf-8", "resume.tex")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(tex)); err != nil {
		log.Printf("Error writing LaTeX export: %v", err)
	}
}

// handleExportPDF prints the standalone preview through a headless browser.
// The photo is inlined because the browser cannot reach session-scoped URLs.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	var snap types.Snapshot
	var photoURI string
	err := s.withController(r, func(c *session.Controller) error {
		var err error
		snap, _, err = c.Snapshot()
		if err != nil {
			return err
		}
		if ref := snap.Photo(); ref != nil {
			uri, err := s.photos.DataURI(ref)
			if err != nil {
				log.Printf("[pdf] photo %s unavailable: %v", ref.ID, err)
				return nil
			}
			photoURI = uri
		}
		return nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	html, err := rendering.RenderPreviewHTML(rendering.BuildPreview(snap, photoURI))
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	pdf, err := s.pdf.RenderPDF(r.Context(), html)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	setAttachment(w, "application/pdf", "resume.pdf")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdf); err != nil {
		log.Printf("Error writing PDF export: %v", err)
	}
}

// handlePhoto serves the image behind a live display handle.
func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.photos.Open(r.PathValue("token"))
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing photo: %v", err)
	}
}
