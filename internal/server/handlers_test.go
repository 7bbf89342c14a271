package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jonathan/resume-builder/internal/config"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_NewSessionShowsBlankForm(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	doc := c.page()

	require.NotNil(t, c.cookie)
	assert.True(t, c.cookie.HttpOnly)
	assert.Equal(t, 1, doc.Find("form#resume-form").Length())
	assert.Equal(t, 1, doc.Find("section.experience .entry").Length())
	assert.Equal(t, 0, doc.Find(".remove-experience").Length(), "the only entry cannot be removed")
	assert.Equal(t, 0, doc.Find(".error").Length())

	selected, ok := doc.Find("select[name='education.degree'] option[selected]").Attr("value")
	assert.True(t, ok)
	assert.Equal(t, string(types.DefaultDegree), selected)
}

func TestState_Editing(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	st := c.state()
	assert.Equal(t, "editing", st.Mode)
	require.NotNil(t, st.Draft)
	assert.Len(t, st.Draft.Experience, 1)
	assert.Empty(t, st.Draft.Skills)
	require.NotNil(t, st.Validation)
	assert.True(t, st.Validation.Valid())
	assert.False(t, st.CanRemoveExperience)
	assert.Empty(t, st.Snapshot)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t, nil)
	ann := newTestClient(t, s)
	bob := newTestClient(t, s)

	ann.postJSON("/form/field", updateFieldRequest{Path: "name", Value: "Ann"})
	bob.postJSON("/form/field", updateFieldRequest{Path: "name", Value: "Bob"})

	assert.Equal(t, "Ann", ann.state().Draft.Name)
	assert.Equal(t, "Bob", bob.state().Draft.Name)
	assert.NotEqual(t, ann.cookie.Value, bob.cookie.Value)
}

func TestUpdateField(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		value  string
		status int
		check  func(t *testing.T, r *types.Resume)
	}{
		{
			name: "name", path: "name", value: "Ann Lee", status: http.StatusOK,
			check: func(t *testing.T, r *types.Resume) { assert.Equal(t, "Ann Lee", r.Name) },
		},
		{
			name: "phone", path: "phone", value: "+1 555 0100", status: http.StatusOK,
			check: func(t *testing.T, r *types.Resume) { assert.Equal(t, "+1 555 0100", r.Phone) },
		},
		{
			name: "institution", path: "education.institution", value: "MIT", status: http.StatusOK,
			check: func(t *testing.T, r *types.Resume) { assert.Equal(t, "MIT", r.Education.Institution) },
		},
		{
			name: "degree", path: "education.degree", value: "phd", status: http.StatusOK,
			check: func(t *testing.T, r *types.Resume) { assert.Equal(t, types.DegreePhD, r.Education.Degree) },
		},
		{
			name: "year is free text", path: "education.year", value: "soon", status: http.StatusOK,
			check: func(t *testing.T, r *types.Resume) { assert.Equal(t, "soon", r.Education.Year) },
		},
		{
			name: "unknown path", path: "address", value: "x", status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			c := newTestClient(t, s)

			w := c.postJSON("/form/field", updateFieldRequest{Path: tt.path, Value: tt.value})
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.check != nil {
				st := decodeState(t, w)
				require.NotNil(t, st.Draft)
				tt.check(t, st.Draft)
			}
		})
	}
}

func TestUpdateField_InvalidBody(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	req := httptest.NewRequest(http.MethodPost, "/form/field", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestSubmit_Invalid(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.postJSON("/form/field", updateFieldRequest{Path: "email", Value: "not-an-email"})

	w := c.postJSON("/form/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	st := decodeState(t, w)
	assert.Equal(t, "editing", st.Mode)
	require.NotNil(t, st.Validation)
	assert.True(t, st.Validation.NameInvalid)
	assert.True(t, st.Validation.EmailInvalid)
	assert.Equal(t, []validation.FieldError{
		{Field: "name", Message: validation.MessageNameRequired},
		{Field: "email", Message: validation.MessageEmailInvalid},
	}, st.Errors)

	// Editing the name clears only its flag.
	w = c.postJSON("/form/field", updateFieldRequest{Path: "name", Value: "Ann"})
	st = decodeState(t, w)
	assert.False(t, st.Validation.NameInvalid)
	assert.True(t, st.Validation.EmailInvalid)

	doc := c.page()
	assert.Equal(t, 0, doc.Find("[data-field=name] .error").Length())
	assert.Equal(t, validation.MessageEmailInvalid, doc.Find("[data-field=email] .error").Text())
}

func TestSubmitPreviewEditFlow(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.fillValid()

	st := c.state()
	entryID := st.Draft.Experience[0].ID
	c.postJSON("/form/experience/"+entryID, updateExperienceRequest{Field: "company", Value: "Acme"})
	c.postJSON("/form/skills", addSkillRequest{Skill: "  Go  "})

	w := c.postJSON("/form/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st = decodeState(t, w)
	assert.Equal(t, "viewing", st.Mode)
	assert.Nil(t, st.Draft)

	snap, err := types.ParseSnapshot(st.Snapshot)
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", snap.Resume().Name)
	assert.Equal(t, []string{"Go"}, snap.Resume().Skills)

	doc := c.page()
	assert.Equal(t, "Ann Lee", doc.Find(".name").Text())
	assert.Equal(t, "Acme", doc.Find("section.experience .company").Text())
	assert.Equal(t, 1, doc.Find("form[action='/resume/edit']").Length())
	assert.Equal(t, 0, doc.Find(".photo").Length())

	// Form operations are refused while viewing.
	assert.Equal(t, http.StatusConflict, c.postJSON("/form/field", updateFieldRequest{Path: "name", Value: "X"}).Code)
	assert.Equal(t, http.StatusConflict, c.postJSON("/form/submit", nil).Code)

	w = c.postJSON("/resume/edit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	assert.Equal(t, "editing", st.Mode)
	assert.Empty(t, st.Draft.Name, "edit starts from a blank draft")
	assert.Empty(t, st.Draft.Skills)
	assert.NotEqual(t, entryID, st.Draft.Experience[0].ID)

	assert.Equal(t, http.StatusConflict, c.postJSON("/resume/edit", nil).Code)
}

func TestExperienceEntries(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	first := c.state().Draft.Experience[0].ID

	// The only entry cannot be removed.
	w := c.postJSON("/form/experience/"+first+"/delete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, c.state().Draft.Experience, 1)

	w = c.postJSON("/form/experience", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	st := decodeState(t, w)
	require.NotEmpty(t, st.ID)
	require.Len(t, st.Draft.Experience, 2)
	assert.Equal(t, st.ID, st.Draft.Experience[1].ID)
	assert.True(t, st.CanRemoveExperience)

	w = c.postJSON("/form/experience/"+st.ID, updateExperienceRequest{Field: "position", Value: "Lead"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lead", decodeState(t, w).Draft.Experience[1].Position)

	w = c.postJSON("/form/experience/"+first+"/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st2 := decodeState(t, w)
	require.Len(t, st2.Draft.Experience, 1)
	assert.Equal(t, st.ID, st2.Draft.Experience[0].ID)
	assert.False(t, st2.CanRemoveExperience)

	// Unknown ids are ignored.
	assert.Equal(t, http.StatusOK, c.postJSON("/form/experience/missing/delete", nil).Code)
	assert.Equal(t, http.StatusOK, c.postJSON("/form/experience/missing", updateExperienceRequest{Field: "company", Value: "x"}).Code)

	// Unknown fields are not.
	assert.Equal(t, http.StatusBadRequest, c.postJSON("/form/experience/"+st.ID, updateExperienceRequest{Field: "salary", Value: "x"}).Code)
}

func TestSkills(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	c.postJSON("/form/skills", addSkillRequest{Skill: "Go"})
	c.postJSON("/form/skills", addSkillRequest{Skill: "SQL"})
	c.postJSON("/form/skills", addSkillRequest{Skill: "Go"})
	c.postJSON("/form/skills", addSkillRequest{Skill: "   "})
	assert.Equal(t, []string{"Go", "SQL"}, c.state().Draft.Skills)

	w := c.postJSON("/form/skills/5/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Go", "SQL"}, decodeState(t, w).Draft.Skills)

	w = c.postJSON("/form/skills/0/delete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"SQL"}, decodeState(t, w).Draft.Skills)

	assert.Equal(t, http.StatusBadRequest, c.postJSON("/form/skills/first/delete", nil).Code)
}

func TestUploadPhoto(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	w := c.postMultipart("/form/photo", nil, "me.png", pngHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decodeState(t, w)
	require.NotNil(t, st.Draft.Photo)
	assert.Equal(t, "me.png", st.Draft.Photo.Filename)
	assert.Equal(t, "image/png", st.Draft.Photo.ContentType)

	// A second upload replaces and frees the first.
	w = c.postMultipart("/form/photo", nil, "other.png", pngHeader)
	require.Equal(t, http.StatusOK, w.Code)
	photos, _ := s.photos.Stats()
	assert.Equal(t, 1, photos)

	assert.Contains(t, c.page().Find(".photo-name").Text(), "other.png")

	c.fillValid()
	w = c.postJSON("/form/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	require.NotEmpty(t, st.PhotoURL)

	src, ok := c.page().Find(".photo img").Attr("src")
	assert.True(t, ok)
	assert.Equal(t, st.PhotoURL, src)

	photo := c.get(st.PhotoURL)
	require.Equal(t, http.StatusOK, photo.Code)
	assert.Equal(t, "image/png", photo.Header().Get("Content-Type"))
	assert.Equal(t, pngHeader, photo.Body.Bytes())

	// Leaving the preview revokes the handle and frees the photo.
	c.postJSON("/resume/edit", nil)
	assert.Equal(t, http.StatusNotFound, c.get(st.PhotoURL).Code)
	photos, handles := s.photos.Stats()
	assert.Equal(t, 0, photos)
	assert.Equal(t, 0, handles)
}

func TestUploadPhoto_Missing(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	w := c.postMultipart("/form/photo", url.Values{"note": {"x"}}, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "photo file is required")
}

func TestUploadPhoto_TooLarge(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.MaxPhotoBytes = 8 })
	c := newTestClient(t, s)

	w := c.postMultipart("/form/photo", nil, "big.png", pngHeader)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Nil(t, c.state().Draft.Photo)

	photos, _ := s.photos.Stats()
	assert.Equal(t, 0, photos)
}

func TestUploadPhoto_WhileViewingIsDiscarded(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.fillValid()
	require.Equal(t, http.StatusOK, c.postJSON("/form/submit", nil).Code)

	w := c.postMultipart("/form/photo", nil, "late.png", pngHeader)
	assert.Equal(t, http.StatusConflict, w.Code)
	photos, _ := s.photos.Stats()
	assert.Equal(t, 0, photos)
}

func TestPhoto_UnknownToken(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	assert.Equal(t, http.StatusNotFound, c.get("/photos/nope").Code)
}

func TestExports_RequireViewing(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	for _, path := range []string{"/resume.json", "/resume.tex", "/resume.pdf"} {
		t.Run(path, func(t *testing.T) {
			w := c.get(path)
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Contains(t, w.Body.String(), "not allowed while editing")
		})
	}
}

func TestExportJSON(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.fillValid()
	c.postJSON("/form/skills", addSkillRequest{Skill: "Go"})
	require.Equal(t, http.StatusOK, c.postJSON("/form/submit", nil).Code)

	w := c.get("/resume.json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="resume.json"`)

	snap, err := types.ParseSnapshot(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", snap.Resume().Name)
	assert.Equal(t, []string{"Go"}, snap.Resume().Skills)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "created_at")
}

func TestExportLaTeX(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.fillValid()
	c.postJSON("/form/field", updateFieldRequest{Path: "education.institution", Value: "R&D Institute"})
	require.Equal(t, http.StatusOK, c.postJSON("/form/submit", nil).Code)

	w := c.get("/resume.tex")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/x-tex")

	tex := readAll(t, w.Body)
	assert.Contains(t, tex, `\documentclass`)
	assert.Contains(t, tex, "Ann Lee")
	assert.Contains(t, tex, `R\&D Institute`)
}

func TestFormPost_SubmitRedirectsToPreview(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	entry := "experience." + c.state().Draft.Experience[0].ID

	w := c.postForm("/form", url.Values{
		"name":                 {"Ann Lee"},
		"email":                {"ann@example.com"},
		"education.degree":     {"master"},
		entry + ".period":      {"2019-2023"},
		entry + ".description": {"Line one\r\nLine two"},
		"action":               {"submit"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	doc := c.page()
	assert.Equal(t, "Ann Lee", doc.Find(".name").Text())
	assert.Equal(t, "Master's", doc.Find(".degree").Text())
	assert.Equal(t, ", 2019-2023", doc.Find(".period").Text())
	assert.Equal(t, "Line one\nLine two", doc.Find(".description").Text())
}

func TestFormPost_InvalidSubmitKeepsFlags(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	w := c.postForm("/form", url.Values{"name": {""}, "email": {"bad"}, "action": {"submit"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	doc := c.page()
	assert.Equal(t, validation.MessageNameRequired, doc.Find("[data-field=name] .error").Text())
	assert.Equal(t, validation.MessageEmailInvalid, doc.Find("[data-field=email] .error").Text())

	// Posting the same values again does not count as editing them.
	c.postForm("/form", url.Values{"name": {""}, "email": {"bad"}, "action": {"save"}})
	st := c.state()
	assert.True(t, st.Validation.NameInvalid)
	assert.True(t, st.Validation.EmailInvalid)

	// Changing the email clears its flag only.
	c.postForm("/form", url.Values{"name": {""}, "email": {"ann@example.com"}, "action": {"save"}})
	st = c.state()
	assert.True(t, st.Validation.NameInvalid)
	assert.False(t, st.Validation.EmailInvalid)
}

func TestFormPost_ListActions(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	c.postForm("/form", url.Values{"skill": {"Go"}, "action": {"add_skill"}})
	c.postForm("/form", url.Values{"skill": {"SQL"}, "action": {"add_skill"}})
	c.postForm("/form", url.Values{"action": {"add_experience"}})

	doc := c.page()
	assert.Equal(t, 2, doc.Find(".skill-list .skill").Length())
	assert.Equal(t, 2, doc.Find(".remove-experience").Length())
	assert.Empty(t, doc.Find("input[name=skill]").AttrOr("value", ""), "the skill input starts empty again")

	st := c.state()
	w := c.postForm("/form", url.Values{"action": {"remove_experience:" + st.Draft.Experience[0].ID}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = c.postForm("/form", url.Values{"action": {"remove_skill:0"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	st = c.state()
	assert.Len(t, st.Draft.Experience, 1)
	assert.Equal(t, []string{"SQL"}, st.Draft.Skills)

	w = c.postForm("/form", url.Values{"action": {"remove_experience:" + st.Draft.Experience[0].ID}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFormPost_BadActions(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	assert.Equal(t, http.StatusBadRequest, c.postForm("/form", url.Values{"action": {"launch"}}).Code)
	assert.Equal(t, http.StatusBadRequest, c.postForm("/form", url.Values{"action": {"remove_skill:x"}}).Code)
}

func TestFormPost_MultipartWithPhoto(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)

	w := c.postMultipart("/form", url.Values{"name": {"Ann Lee"}, "action": {"save"}}, "me.png", pngHeader)
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())

	st := c.state()
	assert.Equal(t, "Ann Lee", st.Draft.Name)
	require.NotNil(t, st.Draft.Photo)
	assert.Equal(t, "me.png", st.Draft.Photo.Filename)
}

func TestEdit_HTMLClientRedirected(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.fillValid()
	require.Equal(t, http.StatusOK, c.postJSON("/form/submit", nil).Code)

	w := c.postForm("/resume/edit", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "editing", c.state().Mode)

	// A repeated click while already editing lands on the form as well.
	w = c.postForm("/resume/edit", url.Values{})
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestExpiredSessionStartsOver(t *testing.T) {
	s := newTestServer(t, nil)
	c := newTestClient(t, s)
	c.postJSON("/form/field", updateFieldRequest{Path: "name", Value: "Ann"})
	old := c.cookie.Value

	s.sessions.Delete(old)

	st := c.state()
	assert.Empty(t, st.Draft.Name)
	assert.NotEqual(t, old, c.cookie.Value)
}
