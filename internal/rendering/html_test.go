package rendering

import (
	"bytes"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func renderPreview(t *testing.T, p Preview) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, RenderPreviewPage(&buf, p))
	return parseHTML(t, buf.String())
}

func renderForm(t *testing.T, page FormPage) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, RenderFormPage(&buf, page))
	return parseHTML(t, buf.String())
}

func TestRenderPreviewPage_FullSnapshot(t *testing.T) {
	r := annLee()
	r.Phone = "+1 555 0100"
	r.Photo = &types.PhotoRef{ID: "p1"}
	doc := renderPreview(t, BuildPreview(types.NewSnapshot(r), "/photos/tok"))

	assert.Equal(t, "Ann Lee", doc.Find(".name").Text())
	assert.Equal(t, "ann@example.com", doc.Find(".email").Text())
	assert.Equal(t, "+1 555 0100", doc.Find(".phone").Text())
	src, ok := doc.Find(".photo img").Attr("src")
	assert.True(t, ok)
	assert.Equal(t, "/photos/tok", src)

	assert.Equal(t, "MIT", doc.Find(".institution").Text())
	assert.Equal(t, "Master's", doc.Find(".degree").Text())
	assert.Equal(t, ", 2019", doc.Find(".year").Text())

	entries := doc.Find("section.experience .entry")
	require.Equal(t, 1, entries.Length())
	assert.Equal(t, "Acme", entries.Find(".company").Text())
	assert.Equal(t, "Engineer", entries.Find(".position").Text())
	assert.Equal(t, ", 2019-2023", entries.Find(".period").Text())
	assert.Equal(t, "Built things", entries.Find(".description").Text())

	skills := doc.Find("section.skills .skill")
	require.Equal(t, 2, skills.Length())
	assert.Equal(t, "Go", skills.Eq(0).Text())
	assert.Equal(t, "SQL", skills.Eq(1).Text())

	assert.Equal(t, 1, doc.Find(`form[action="/resume/edit"]`).Length())
}

func TestRenderPreviewPage_ConditionalSections(t *testing.T) {
	r := types.Resume{
		Name:       "Ann Lee",
		Email:      "ann@example.com",
		Education:  types.Education{Degree: types.DegreeBachelor},
		Experience: []types.ExperienceEntry{{ID: "e1", Company: "Acme"}},
	}
	doc := renderPreview(t, BuildPreview(types.NewSnapshot(r), "/photos/ignored"))

	assert.Equal(t, 0, doc.Find(".photo").Length())
	assert.Equal(t, 0, doc.Find(".phone").Length())
	assert.Equal(t, 0, doc.Find(".year").Length())
	assert.Equal(t, "Bachelor's", doc.Find(".degree").Text())
	assert.Equal(t, 0, doc.Find("section.skills").Length())

	entry := doc.Find("section.experience .entry")
	require.Equal(t, 1, entry.Length())
	assert.Equal(t, 0, entry.Find(".period").Length())
	assert.Equal(t, 0, entry.Find(".description").Length())

	r.Experience = nil
	doc = renderPreview(t, BuildPreview(types.NewSnapshot(r), ""))
	assert.Equal(t, 0, doc.Find("section.experience").Length())
	assert.Equal(t, 1, doc.Find("section.education").Length())
}

func TestRenderPreviewPage_EscapesUserText(t *testing.T) {
	r := annLee()
	r.Name = `<script>alert("x")</script>`
	var buf bytes.Buffer
	require.NoError(t, RenderPreviewPage(&buf, BuildPreview(types.NewSnapshot(r), "")))

	assert.NotContains(t, buf.String(), "<script>")
	doc := parseHTML(t, buf.String())
	assert.Equal(t, r.Name, doc.Find(".name").Text())
}

func TestRenderPreviewHTML_Standalone(t *testing.T) {
	r := annLee()
	r.Photo = &types.PhotoRef{ID: "p1"}
	html, err := RenderPreviewHTML(BuildPreview(types.NewSnapshot(r), "data:image/png;base64,AQI="))
	require.NoError(t, err)

	doc := parseHTML(t, html)
	assert.Equal(t, 0, doc.Find("form").Length())
	src, _ := doc.Find(".photo img").Attr("src")
	assert.Equal(t, "data:image/png;base64,AQI=", src)
}

func TestNewFormPage(t *testing.T) {
	draft := types.Resume{
		Education:  types.Education{Degree: types.DegreeMaster},
		Experience: []types.ExperienceEntry{{ID: "a"}},
	}
	page := NewFormPage(draft, types.ValidationState{EmailInvalid: true}, 1024)

	assert.False(t, page.CanRemoveExperience)
	assert.Empty(t, page.NameMessage)
	assert.Equal(t, validation.MessageEmailInvalid, page.EmailMessage)
	assert.Equal(t, int64(1024), page.MaxPhotoBytes)
	require.Len(t, page.Degrees, 4)
	assert.Equal(t, DegreeOption{Value: "master", Label: "Master's", Selected: true}, page.Degrees[2])

	draft.Experience = append(draft.Experience, types.ExperienceEntry{ID: "b"})
	draft.Education.Degree = "diploma"
	page = NewFormPage(draft, types.ValidationState{}, 0)
	assert.True(t, page.CanRemoveExperience)
	require.Len(t, page.Degrees, 5)
	assert.Equal(t, DegreeOption{Value: "diploma", Label: "diploma", Selected: true}, page.Degrees[4])
}

func TestRenderFormPage_FreshDraft(t *testing.T) {
	draft := types.Resume{
		Education:  types.Education{Degree: types.DefaultDegree},
		Experience: []types.ExperienceEntry{{ID: "e1"}},
	}
	doc := renderForm(t, NewFormPage(draft, types.ValidationState{}, 0))

	assert.Equal(t, 0, doc.Find(".error").Length())
	assert.Equal(t, 0, doc.Find(".invalid").Length())
	assert.Equal(t, 1, doc.Find(".entry").Length())
	assert.Equal(t, 0, doc.Find(".remove-experience").Length(), "the only entry cannot be removed")
	assert.Equal(t, 1, doc.Find(`textarea[name="experience.e1.description"]`).Length())

	selected := doc.Find(`select[name="education.degree"] option[selected]`)
	assert.Equal(t, "bachelor", selected.AttrOr("value", ""))
	assert.Equal(t, 4, doc.Find(`select[name="education.degree"] option`).Length())

	assert.Equal(t, "save", doc.Find("form button").First().AttrOr("value", ""))
}

func TestRenderFormPage_InvalidFlagsAndLists(t *testing.T) {
	draft := types.Resume{
		Name:      "  ",
		Email:     "bad",
		Photo:     &types.PhotoRef{ID: "p", Filename: "me.png"},
		Education: types.Education{Degree: types.DegreePhD},
		Experience: []types.ExperienceEntry{
			{ID: "e1", Company: "Acme"},
			{ID: "e2", Company: "Globex"},
		},
		Skills: []string{"Go", "SQL"},
	}
	doc := renderForm(t, NewFormPage(draft, types.ValidationState{NameInvalid: true, EmailInvalid: true}, 0))

	assert.Equal(t, validation.MessageNameRequired, doc.Find(`[data-field="name"] .error`).Text())
	assert.Equal(t, validation.MessageEmailInvalid, doc.Find(`[data-field="email"] .error`).Text())
	assert.Equal(t, "bad", doc.Find(`input[name="email"]`).AttrOr("value", ""))
	assert.Equal(t, "me.png", doc.Find(".photo-name").Text())

	removes := doc.Find(".remove-experience")
	require.Equal(t, 2, removes.Length())
	assert.Equal(t, "remove_experience:e1", removes.Eq(0).AttrOr("value", ""))
	assert.Equal(t, "Globex", doc.Find(`input[name="experience.e2.company"]`).AttrOr("value", ""))

	skillRemoves := doc.Find(".remove-skill")
	require.Equal(t, 2, skillRemoves.Length())
	assert.Equal(t, "remove_skill:1", skillRemoves.Eq(1).AttrOr("value", ""))
}
