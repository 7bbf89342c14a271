package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jonathan/resume-builder/internal/observability"
	"github.com/jonathan/resume-builder/internal/photo"
	"github.com/jonathan/resume-builder/internal/rendering"
	"github.com/jonathan/resume-builder/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Output formats accepted by --format.
const (
	formatHTML  = "html"
	formatLaTeX = "tex"
	formatPDF   = "pdf"
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render an exported resume snapshot",
	Long:  "Renders a snapshot exported from /resume.json as a standalone HTML page, a LaTeX document and/or a PDF. Formats are rendered concurrently.",
	RunE:  runRender,
}

var (
	renderInput      string
	renderPhoto      string
	renderFormats    []string
	renderOutDir     string
	renderTemplate   string
	renderChromePath string
	renderPDFTimeout time.Duration
	renderVerbose    bool
)

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "in", "i", "", "Path to snapshot JSON file (required)")
	renderCmd.Flags().StringVarP(&renderPhoto, "photo", "p", "", "Image file for the snapshot's photo (optional)")
	renderCmd.Flags().StringSliceVarP(&renderFormats, "format", "f", []string{formatHTML, formatLaTeX}, "Output formats: html, tex, pdf (repeatable)")
	renderCmd.Flags().StringVarP(&renderOutDir, "out-dir", "o", "", "Directory to write outputs to (required)")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Custom LaTeX template (defaults to the built-in one)")
	renderCmd.Flags().StringVar(&renderChromePath, "chrome", "", "Chrome/Chromium binary for PDF output (defaults to CHROME_PATH or auto-detect)")
	renderCmd.Flags().DurationVar(&renderPDFTimeout, "pdf-timeout", rendering.DefaultPDFTimeout, "Timeout for PDF output")
	renderCmd.Flags().BoolVarP(&renderVerbose, "verbose", "v", false, "Print the snapshot summary and browser progress")

	if err := renderCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	if err := renderCmd.MarkFlagRequired("out-dir"); err != nil {
		panic(fmt.Sprintf("failed to mark out-dir flag as required: %v", err))
	}

	rootCmd.AddCommand(renderCmd)
}

// normalizeFormats lower-cases, dedupes and checks the requested formats, keeping their order.
func normalizeFormats(formats []string) ([]string, error) {
	var out []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case formatHTML, formatLaTeX, formatPDF:
		default:
			return nil, fmt.Errorf("unknown format %q (want html, tex or pdf)", f)
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one --format is required")
	}
	return out, nil
}

// renderPhotoData holds the image shown for the snapshot's photo.
type renderPhotoData struct {
	data    []byte
	dataURI string
	ext     string
}

// loadRenderPhoto reads --photo. The photo is only used when the snapshot has one.
func loadRenderPhoto(cmd *cobra.Command, snap types.Snapshot, path string) (*renderPhotoData, error) {
	if path == "" {
		if snap.Photo() != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: snapshot has a photo but no --photo was given; rendering without it\n")
		}
		return nil, nil
	}
	if snap.Photo() == nil {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: snapshot has no photo; ignoring --photo\n")
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo file: %w", err)
	}
	mtype := mimetype.Detect(data)
	return &renderPhotoData{
		data:    data,
		dataURI: photo.EncodeDataURI(data, mtype.String()),
		ext:     mtype.Extension(),
	}, nil
}

func runRender(cmd *cobra.Command, _ []string) error {
	formats, err := normalizeFormats(renderFormats)
	if err != nil {
		return err
	}

	snap, err := loadSnapshot(renderInput, "")
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if renderVerbose {
		printer.PrintSnapshot(snap)
	}

	img, err := loadRenderPhoto(cmd, snap, renderPhoto)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(renderOutDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results := make([]observability.RenderResult, len(formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		g.Go(func() error {
			start := time.Now()
			path, n, err := renderFormat(ctx, format, snap, img)
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", format, err)
			}
			results[i] = observability.RenderResult{
				Format:   format,
				Path:     path,
				Bytes:    n,
				Duration: time.Since(start),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printer.PrintRenderResults(results)
	return nil
}

// renderFormat writes one output file and returns its path and size.
func renderFormat(ctx context.Context, format string, snap types.Snapshot, img *renderPhotoData) (string, int, error) {
	var (
		name    string
		content []byte
	)

	switch format {
	case formatHTML:
		html, err := standaloneHTML(snap, img)
		if err != nil {
			return "", 0, err
		}
		name, content = "resume.html", []byte(html)

	case formatLaTeX:
		opts := rendering.LaTeXOptions{TemplatePath: renderTemplate}
		if img != nil {
			// The .tex references the photo by a path relative to itself
			opts.PhotoFile = "photo" + img.ext
			if err := os.WriteFile(filepath.Join(renderOutDir, opts.PhotoFile), img.data, 0644); err != nil {
				return "", 0, fmt.Errorf("failed to write photo file: %w", err)
			}
		}
		tex, err := rendering.RenderLaTeX(snap, opts)
		if err != nil {
			return "", 0, err
		}
		name, content = "resume.tex", []byte(tex)

	case formatPDF:
		html, err := standaloneHTML(snap, img)
		if err != nil {
			return "", 0, err
		}
		chromePath := renderChromePath
		if chromePath == "" {
			chromePath = os.Getenv("CHROME_PATH")
		}
		renderer := rendering.NewPDFRenderer(chromePath, renderPDFTimeout)
		renderer.Verbose = renderVerbose
		pdf, err := renderer.RenderPDF(ctx, html)
		if err != nil {
			return "", 0, err
		}
		name, content = "resume.pdf", pdf

	default:
		return "", 0, fmt.Errorf("unknown format %q", format)
	}

	path := filepath.Join(renderOutDir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", 0, fmt.Errorf("failed to write output file: %w", err)
	}
	return path, len(content), nil
}

// standaloneHTML renders the preview with the photo inlined.
func standaloneHTML(snap types.Snapshot, img *renderPhotoData) (string, error) {
	photoURL := ""
	if img != nil {
		photoURL = img.dataURI
	}
	return rendering.RenderPreviewHTML(rendering.BuildPreview(snap, photoURL))
}
