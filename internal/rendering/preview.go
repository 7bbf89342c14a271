package rendering

import "github.com/jonathan/resume-builder/internal/types"

var degreeLabels = map[types.Degree]string{
	types.DegreeSecondary: "Secondary",
	types.DegreeBachelor:  "Bachelor's",
	types.DegreeMaster:    "Master's",
	types.DegreePhD:       "PhD",
}

// DegreeLabel returns the display label for a degree code. Unknown codes are returned verbatim.
func DegreeLabel(code types.Degree) string {
	if label, ok := degreeLabels[code]; ok {
		return label
	}
	return string(code)
}

// Preview is everything the preview displays, derived from a snapshot.
// Empty optional fields mean the matching block is not rendered.
type Preview struct {
	Name        string
	Email       string
	Phone       string
	PhotoURL    string
	Institution string
	Degree      string
	Year        string
	Experience  []PreviewEntry
	Skills      []string

	// Standalone drops the Edit control, for exported documents.
	Standalone bool
}

// PreviewEntry is one experience card.
type PreviewEntry struct {
	ID          string
	Company     string
	Position    string
	Period      string
	Description string
}

// BuildPreview derives the preview model from a snapshot. photoURL is the display URL
// acquired for the snapshot's photo; the photo block is shown only when the snapshot
// has a photo and a URL is available.
func BuildPreview(snap types.Snapshot, photoURL string) Preview {
	r := snap.Resume()

	p := Preview{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		Institution: r.Education.Institution,
		Degree:      DegreeLabel(r.Education.Degree),
		Year:        r.Education.Year,
		Skills:      r.Skills,
	}
	if r.Photo != nil {
		p.PhotoURL = photoURL
	}

	p.Experience = make([]PreviewEntry, len(r.Experience))
	for i, e := range r.Experience {
		p.Experience[i] = PreviewEntry(e)
	}
	return p
}

// HasPhoto reports whether the photo block is rendered.
func (p Preview) HasPhoto() bool {
	return p.PhotoURL != ""
}
