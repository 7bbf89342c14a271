package rendering

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/jonathan/resume-builder/internal/types"
)

// LaTeX templates use << >> delimiters so they do not collide with LaTeX braces.
const (
	latexLeftDelim  = "<<"
	latexRightDelim = ">>"
)

const embeddedLaTeXTemplate = "templates/resume.tex"

// LaTeXOptions controls LaTeX export.
type LaTeXOptions struct {
	// TemplatePath overrides the built-in template.
	TemplatePath string
	// PhotoFile is the graphic written next to the .tex file. Empty omits the photo.
	PhotoFile string
}

// TemplateData represents the data structure passed to the LaTeX template.
// Every string is already escaped.
type TemplateData struct {
	Name        string
	Email       string
	Phone       string
	PhotoFile   string
	Institution string
	Degree      string
	Year        string
	Experience  []ExperienceSection
	Skills      string
}

// ExperienceSection is one escaped experience entry
type ExperienceSection struct {
	Company     string
	Position    string
	Period      string
	Description string
}

// RenderLaTeX renders a snapshot as a LaTeX document.
func RenderLaTeX(snap types.Snapshot, opts LaTeXOptions) (string, error) {
	if snap.IsZero() {
		return "", &RenderError{Message: "no snapshot to render"}
	}

	tmpl, err := parseTemplate(opts.TemplatePath)
	if err != nil {
		return "", err
	}

	data := buildTemplateData(snap, opts.PhotoFile)

	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", &TemplateError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}

	return result.String(), nil
}

// parseTemplate reads and parses a LaTeX template file; an empty path uses the built-in one
func parseTemplate(templatePath string) (*template.Template, error) {
	var (
		content []byte
		err     error
	)
	if templatePath == "" {
		content, err = templateFS.ReadFile(embeddedLaTeXTemplate)
	} else {
		content, err = os.ReadFile(templatePath)
	}
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &TemplateError{
				Message: fmt.Sprintf("template file not found: %s", templatePath),
				Cause:   err,
			}
		}
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", templatePath),
			Cause:   err,
		}
	}

	tmpl, err := template.New("resume").
		Delims(latexLeftDelim, latexRightDelim).
		Funcs(template.FuncMap{"escape": EscapeLaTeX}).
		Parse(string(content))
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}

	return tmpl, nil
}

// buildTemplateData escapes the snapshot into template data
func buildTemplateData(snap types.Snapshot, photoFile string) *TemplateData {
	r := snap.Resume()

	data := &TemplateData{
		Name:        EscapeLaTeX(r.Name),
		Email:       EscapeLaTeX(r.Email),
		Phone:       EscapeLaTeX(r.Phone),
		Institution: EscapeLaTeX(r.Education.Institution),
		Degree:      EscapeLaTeX(DegreeLabel(r.Education.Degree)),
		Year:        EscapeLaTeX(r.Education.Year),
		Experience:  make([]ExperienceSection, 0, len(r.Experience)),
	}
	if r.Photo != nil && photoFile != "" {
		data.PhotoFile = photoFile
	}

	for _, e := range r.Experience {
		data.Experience = append(data.Experience, ExperienceSection{
			Company:     EscapeLaTeX(e.Company),
			Position:    EscapeLaTeX(e.Position),
			Period:      EscapeLaTeX(e.Period),
			Description: EscapeLaTeXMultiline(e.Description),
		})
	}

	skills := make([]string, len(r.Skills))
	for i, s := range r.Skills {
		skills[i] = EscapeLaTeX(s)
	}
	data.Skills = strings.Join(skills, ", ")

	return data
}
