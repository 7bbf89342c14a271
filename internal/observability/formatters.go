// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/schemas"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/jonathan/resume-builder/internal/validation"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSnapshot outputs a human-readable summary of a submitted resume.
func (p *Printer) PrintSnapshot(snap types.Snapshot) {
	if snap.IsZero() {
		return
	}
	r := snap.Resume()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:     %s\n", r.Name))
	sb.WriteString(fmt.Sprintf("Email:    %s\n", r.Email))
	if r.Phone != "" {
		sb.WriteString(fmt.Sprintf("Phone:    %s\n", r.Phone))
	}
	if r.Photo != nil {
		photo := r.Photo.Filename
		if photo == "" {
			photo = r.Photo.ID
		}
		sb.WriteString(fmt.Sprintf("Photo:    %s\n", photo))
	}

	education := rendering.DegreeLabel(r.Education.Degree)
	if r.Education.Institution != "" {
		education = r.Education.Institution + ", " + education
	}
	if r.Education.Year != "" {
		education += " (" + r.Education.Year + ")"
	}
	sb.WriteString(fmt.Sprintf("Degree:   %s\n", education))

	if len(r.Experience) > 0 {
		sb.WriteString(fmt.Sprintf("\nExperience (%d):\n", len(r.Experience)))
		count := min(len(r.Experience), maxItemsToShow)
		for i := 0; i < count; i++ {
			e := r.Experience[i]
			line := e.Company
			if e.Position != "" {
				line += " / " + e.Position
			}
			if e.Period != "" {
				line += ", " + e.Period
			}
			sb.WriteString(fmt.Sprintf("  • %s\n", line))
		}
		if len(r.Experience) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(r.Experience)-maxItemsToShow))
		}
	}

	if len(r.Skills) > 0 {
		sb.WriteString(fmt.Sprintf("\nSkills: %s\n", strings.Join(r.Skills, ", ")))
	}

	sb.WriteString(fmt.Sprintf("\nCreated:  %s", snap.CreatedAt().Format(time.RFC3339)))

	p.printBox("RESUME SNAPSHOT", sb.String())
}

// PrintValidation outputs the submit-rule result for a resume.
func (p *Printer) PrintValidation(state types.ValidationState) {
	if state.Valid() {
		p.printBox("SUBMIT CHECKS", "✓ name\n✓ email")
		return
	}

	var sb strings.Builder
	for _, fe := range validation.Errors(state) {
		sb.WriteString(fmt.Sprintf("✗ %s: %s\n", fe.Field, fe.Message))
	}
	p.printBox("SUBMIT CHECKS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSchemaErrors outputs JSON Schema violations.
func (p *Printer) PrintSchemaErrors(verr *schemas.ValidationError) {
	if verr == nil || len(verr.Errors) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d schema violation(s):\n\n", len(verr.Errors)))
	for i, fe := range verr.Errors {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, fe.Field))
		sb.WriteString(fmt.Sprintf("   %s\n", fe.Message))
	}
	p.printBox("SCHEMA VIOLATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// RenderResult describes one written output file.
type RenderResult struct {
	Format   string
	Path     string
	Bytes    int
	Duration time.Duration
}

// PrintRenderResults outputs the files written by a render run.
func (p *Printer) PrintRenderResults(results []RenderResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("%-5s %8d B  %6s  %s\n",
			r.Format, r.Bytes, r.Duration.Round(time.Millisecond), r.Path))
	}
	p.printBox("RENDERED OUTPUTS", strings.TrimSuffix(sb.String(), "\n"))
}
