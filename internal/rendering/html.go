package rendering

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"strconv"

	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
)

//go:embed templates
var templateFS embed.FS

// Page template names.
const (
	PageForm    = "form.html"
	PagePreview = "preview.html"
)

// DegreeOption is one entry of the degree select.
type DegreeOption struct {
	Value    string
	Label    string
	Selected bool
}

// FormPage is the data behind the editing page.
type FormPage struct {
	Draft               types.Resume
	Validation          types.ValidationState
	NameMessage         string
	EmailMessage        string
	Degrees             []DegreeOption
	CanRemoveExperience bool
	MaxPhotoBytes       int64
}

// NewFormPage builds the editing page data for a draft and its validation flags.
func NewFormPage(draft types.Resume, state types.ValidationState, maxPhotoBytes int64) FormPage {
	page := FormPage{
		Draft:               draft,
		Validation:          state,
		CanRemoveExperience: len(draft.Experience) > 1,
		MaxPhotoBytes:       maxPhotoBytes,
	}
	if state.NameInvalid {
		page.NameMessage = validation.MessageNameRequired
	}
	if state.EmailInvalid {
		page.EmailMessage = validation.MessageEmailInvalid
	}

	for _, d := range types.Degrees() {
		page.Degrees = append(page.Degrees, DegreeOption{
			Value:    string(d),
			Label:    DegreeLabel(d),
			Selected: d == draft.Education.Degree,
		})
	}
	// A stored code outside the known set still round-trips through the select.
	if _, known := degreeLabels[draft.Education.Degree]; !known {
		page.Degrees = append(page.Degrees, DegreeOption{
			Value:    string(draft.Education.Degree),
			Label:    DegreeLabel(draft.Education.Degree),
			Selected: true,
		})
	}
	return page
}

var htmlFuncs = template.FuncMap{
	// photoURL marks URLs minted by the server (handle paths, data: URIs) as safe.
	"photoURL": func(s string) template.URL { return template.URL(s) }, //nolint:gosec // server-generated
	"itoa":     strconv.Itoa,
}

// parsePage parses the shared layout together with one page template
func parsePage(name string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(htmlFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse page template " + name,
			Cause:   err,
		}
	}
	return tmpl, nil
}

func renderPage(w io.Writer, name string, data any) error {
	tmpl, err := parsePage(name)
	if err != nil {
		return err
	}

	// Execute into a buffer so a failing template never writes a partial page.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return &TemplateError{
			Message: "failed to execute page template " + name,
			Cause:   err,
		}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &RenderError{Message: "failed to write page", Cause: err}
	}
	return nil
}

// RenderFormPage writes the editing page.
func RenderFormPage(w io.Writer, page FormPage) error {
	return renderPage(w, PageForm, page)
}

// RenderPreviewPage writes the preview page.
func RenderPreviewPage(w io.Writer, p Preview) error {
	return renderPage(w, PagePreview, p)
}

// RenderPreviewHTML returns the preview as a standalone HTML document.
func RenderPreviewHTML(p Preview) (string, error) {
	p.Standalone = true
	var buf bytes.Buffer
	if err := RenderPreviewPage(&buf, p); err != nil {
		return "", err
	}
	return buf.String(), nil
}
