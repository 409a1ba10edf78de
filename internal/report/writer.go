package report

import (
	"io"

	"github.com/nao1215/pagemirror/internal/model"
)

// Writer outputs the result of one page.
// Writers are called once per page, in completion order.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.MirrorReport) (int, error)
}

// Format selects a Writer implementation.
type Format int

const (
	// FormatSimple is the human-readable terminal output.
	FormatSimple Format = iota
	// FormatJSON is one JSON document per page.
	FormatJSON
	// FormatMarkdown is a Markdown section per page.
	FormatMarkdown
)

// Options holds the settings shared by every format.
type Options struct {
	// NoColor disables ANSI colors in simple output.
	NoColor bool

	// Verbose adds per-category asset counts to simple output.
	Verbose bool

	// Version is recorded in Markdown footers.
	Version string
}

// New returns the Writer for format.
func New(output io.Writer, format Format, opts Options) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output, opts.Version)
	default:
		return NewSimpleWriter(output, WithNoColor(opts.NoColor), WithVerbose(opts.Verbose))
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusText is the one-line page outcome used by the structured formats.
func statusText(report *model.MirrorReport) string {
	if report.Failed() {
		return "❌ Error - " + report.ErrorMessage
	}
	return "✅ Done"
}
