package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/pagemirror/internal/model"
)

// SimpleWriter prints the terminal output of a run:
//
//	Fetching https://example.com/blog...
//	One asset failed to save to sources/example.com_blog/images: fetch failed: ...
//	✅ Done
//
// In metadata mode the site, link and image counts and the previous fetch
// time are printed before the status line.
type SimpleWriter struct {
	baseWriter

	// verbose adds a per-category summary.
	verbose bool

	// Colors for the status lines and metadata labels.
	success *color.Color
	failure *color.Color
	warning *color.Color
	label   *color.Color
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithNoColor disables ANSI colors regardless of the terminal.
func WithNoColor(noColor bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if !noColor {
			return
		}
		for _, c := range []*color.Color{w.success, w.failure, w.warning, w.label} {
			c.DisableColor()
		}
	}
}

// WithVerbose enables the per-category asset summary.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
// Colors follow fatih/color's terminal detection unless disabled.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		success:    color.New(color.FgGreen),
		failure:    color.New(color.FgRed),
		warning:    color.New(color.FgYellow),
		label:      color.New(color.FgCyan, color.Bold),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one page's result.
func (w *SimpleWriter) Write(report *model.MirrorReport) (int, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "\nFetching %s...\n", report.Target)

	for _, f := range report.Failures() {
		sb.WriteString(w.warning.Sprintf("One asset failed to save to %s: %s", f.Dir, f.Error))
		sb.WriteString("\n")
	}

	if w.verbose && report.Mode == model.ModeMirror && !report.Failed() {
		w.writeCategorySummary(&sb, report)
	}

	if report.Metadata != nil {
		w.writeMetadata(&sb, report.Metadata)
	}

	if report.Failed() {
		sb.WriteString(w.failure.Sprintf("❌ Error while fetching %s: %s", report.Target, report.ErrorMessage))
	} else {
		sb.WriteString(w.success.Sprint("✅ Done"))
	}
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

// writeMetadata writes the metadata-mode lines.
func (w *SimpleWriter) writeMetadata(sb *strings.Builder, meta *model.MetadataReport) {
	fmt.Fprintf(sb, "%s %s\n", w.label.Sprint("site:"), meta.Site)
	fmt.Fprintf(sb, "%s %d\n", w.label.Sprint("num_links:"), meta.NumLinks)
	fmt.Fprintf(sb, "%s %d\n", w.label.Sprint("images:"), meta.Images)
	fmt.Fprintf(sb, "%s %s\n", w.label.Sprint("last_fetched:"), meta.LastFetched)
}

// writeCategorySummary writes one line per asset category.
func (w *SimpleWriter) writeCategorySummary(sb *strings.Builder, report *model.MirrorReport) {
	title := cases.Title(language.English)
	for _, c := range model.AssetCategories {
		saved, failed := report.CategoryCounts(c)
		fmt.Fprintf(sb, "  %-12s %d saved, %d failed\n", title.String(c.String())+":", saved, failed)
	}
	if report.HTMLPath != "" {
		fmt.Fprintf(sb, "  %-12s %s\n", "Page:", report.HTMLPath)
	}
}
