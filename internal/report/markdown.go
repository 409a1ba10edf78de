package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/pagemirror/internal/model"
)

// MarkdownWriter outputs one Markdown section per page.
type MarkdownWriter struct {
	baseWriter

	// version is shown in the footer.
	version string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

// Write outputs the page report in Markdown format.
func (w *MarkdownWriter) Write(report *model.MirrorReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)

	switch {
	case report.Metadata != nil:
		w.writeMetadata(md, report.Metadata)
	case report.Mode == model.ModeMirror && !report.Failed():
		w.writeAssets(md, report)
	}

	w.writeAlert(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the page heading and its property table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.MirrorReport) {
	md.H2(report.Target)
	md.PlainText("")

	rows := [][]string{
		{"Mode", string(report.Mode)},
		{"Slug", "`" + report.Slug + "`"},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Status", statusText(report)},
	}
	if report.HTMLPath != "" {
		rows = append(rows, []string{"HTML", "`" + report.HTMLPath + "`"})
	}
	if report.ContentHash != "" {
		rows = append(rows, []string{"SHA3-256", "`" + report.ContentHash + "`"})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMetadata writes the metadata-mode table.
func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, meta *model.MetadataReport) {
	md.H3("Metadata")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"site", meta.Site},
			{"num_links", strconv.Itoa(meta.NumLinks)},
			{"images", strconv.Itoa(meta.Images)},
			{"last_fetched", meta.LastFetched},
		},
	})
	md.PlainText("")
}

// writeAssets writes per-category counts, a chart and the failed assets.
func (w *MarkdownWriter) writeAssets(md *markdown.Markdown, report *model.MirrorReport) {
	md.H3("Assets")
	md.PlainText("")

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(model.AssetCategories))
	for _, c := range model.AssetCategories {
		saved, failed := report.CategoryCounts(c)
		rows = append(rows, []string{title.String(c.String()), strconv.Itoa(saved), strconv.Itoa(failed)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Saved", "Failed"},
		Rows:   rows,
	})
	md.PlainText("")

	if report.AssetsSaved()+report.AssetsFailed() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Asset Outcomes"),
			piechart.WithShowData(true),
		)
		if n := report.AssetsSaved(); n > 0 {
			chart.LabelAndIntValue("Saved", uint64(n))
		}
		if n := report.AssetsFailed(); n > 0 {
			chart.LabelAndIntValue("Failed", uint64(n))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	failures := report.Failures()
	if len(failures) == 0 {
		return
	}

	md.H3("Failed Assets")
	md.PlainText("")
	failedRows := make([][]string, len(failures))
	for i, f := range failures {
		failedRows[i] = []string{
			title.String(f.Category.String()),
			"`" + f.Original + "`",
			"`" + f.Dir + "`",
			f.Error,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Category", "Reference", "Directory", "Error"},
		Rows:   failedRows,
	})
	md.PlainText("")
}

// writeAlert writes an alert summarizing the page outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.MirrorReport) {
	switch {
	case report.Failed():
		md.Cautionf("The page could not be processed: %s", report.ErrorMessage)
	case report.AssetsFailed() > 0:
		md.Warningf("%d asset(s) could not be saved; their tags keep the original URLs.", report.AssetsFailed())
	case report.Mode == model.ModeMirror:
		md.Tip("Every asset was saved locally.")
	default:
		md.Note("Fetch recorded in the page log.")
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagemirror %s](https://github.com/nao1215/pagemirror)*", w.version)
	md.PlainText("")
}
