package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nao1215/pagemirror/internal/model"
)

// createMirrorReport creates a mirror-mode report with one saved and one failed asset.
func createMirrorReport() *model.MirrorReport {
	report := model.NewMirrorReport("http://example.com/blog", model.ModeMirror)
	report.Slug = "example.com_blog"
	report.HTMLPath = "example.com_blog.html"
	report.ContentHash = "deadbeef"
	report.AddAsset(model.AssetOutcome{
		Category:  model.CategoryImage,
		Attribute: model.SourceAttribute,
		Original:  "img/logo.png",
		Rewritten: "sources/example.com_blog/images/img/logo.png",
		Dir:       "sources/example.com_blog/images",
	})
	report.AddAsset(model.AssetOutcome{
		Category:  model.CategoryScript,
		Attribute: model.SourceAttribute,
		Original:  "app.js",
		Error:     "fetch failed: GET http://example.com/app.js: unexpected HTTP status: 404 Not Found",
		Dir:       "sources/example.com_blog/js",
	})
	report.Finish()
	return report
}

// createMetadataReport creates a metadata-mode report.
func createMetadataReport() *model.MirrorReport {
	report := model.NewMirrorReport("http://example.com", model.ModeMetadata)
	report.Slug = "example.com"
	report.Metadata = &model.MetadataReport{
		Site:        "example.com",
		NumLinks:    12,
		Images:      3,
		LastFetched: model.LastFetchedUnavailable,
		FetchedAt:   "2024-05-01 10:00:00 UTC",
	}
	report.Finish()
	return report
}

// createFailedReport creates a report whose page fetch failed.
func createFailedReport() *model.MirrorReport {
	report := model.NewMirrorReport("http://down.example", model.ModeMirror)
	report.SetError(model.NewFetchError("GET http://down.example", errors.New("connection refused")))
	report.Finish()
	return report
}

// TestSimpleWriter tests the terminal writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("mirror output lines", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithNoColor(true))
		report := createMirrorReport()

		n, err := w.Write(report)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		expected := "\nFetching http://example.com/blog...\n" +
			"One asset failed to save to sources/example.com_blog/js: " + report.Assets[1].Error + "\n" +
			"✅ Done\n"
		if buf.String() != expected {
			t.Errorf("expected output:\n%q\ngot:\n%q", expected, buf.String())
		}
	})

	t.Run("page failure", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := createFailedReport()
		if _, err := NewSimpleWriter(&buf, WithNoColor(true)).Write(report); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		expectedLine := "❌ Error while fetching http://down.example: " + report.ErrorMessage + "\n"
		if !strings.HasSuffix(output, expectedLine) {
			t.Errorf("expected output to end with %q, got %q", expectedLine, output)
		}
		if strings.Contains(output, "Done") {
			t.Error("failed page must not print Done")
		}
	})

	t.Run("metadata lines", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithNoColor(true)).Write(createMetadataReport()); err != nil {
			t.Fatal(err)
		}

		expected := "\nFetching http://example.com...\n" +
			"site: example.com\n" +
			"num_links: 12\n" +
			"images: 3\n" +
			"last_fetched: N/A\n" +
			"✅ Done\n"
		if buf.String() != expected {
			t.Errorf("expected output:\n%q\ngot:\n%q", expected, buf.String())
		}
	})

	t.Run("verbose adds category summary", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithNoColor(true), WithVerbose(true))
		if _, err := w.Write(createMirrorReport()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{"Images:", "Scripts:", "Stylesheets:", "1 saved, 0 failed", "0 saved, 1 failed", "example.com_blog.html"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got %q", want, output)
			}
		}
	})

	t.Run("no color strips escape codes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithNoColor(true)).Write(createFailedReport()); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Errorf("expected no ANSI escapes, got %q", buf.String())
		}
	})
}

// TestJSONWriter tests the JSON writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output is one line per page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		if _, err := w.Write(createMirrorReport()); err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(createFailedReport()); err != nil {
			t.Fatal(err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(lines))
		}

		var decoded model.MirrorReport
		if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Target != "http://example.com/blog" {
			t.Errorf("expected target http://example.com/blog, got %s", decoded.Target)
		}
		if len(decoded.Assets) != 2 || decoded.Assets[1].Category != model.CategoryScript {
			t.Errorf("unexpected assets: %+v", decoded.Assets)
		}

		var failed map[string]any
		if err := json.Unmarshal([]byte(lines[1]), &failed); err != nil {
			t.Fatal(err)
		}
		if failed["error"] == "" || failed["error"] == nil {
			t.Error("expected error field for failed page")
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createMetadataReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "\n  \"target\"") {
			t.Errorf("expected indented output, got %s", buf.String())
		}
		if !strings.Contains(buf.String(), "\"num_links\": 12") {
			t.Errorf("expected metadata in output, got %s", buf.String())
		}
	})

	t.Run("WriteValue", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).WriteValue([]string{"a", "b"}); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "[\"a\",\"b\"]\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("mirror report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "v1.2.3").Write(createMirrorReport()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{
			"## http://example.com/blog",
			"### Assets",
			"Images",
			"```mermaid",
			"### Failed Assets",
			"`app.js`",
			"[!WARNING]",
			"pagemirror v1.2.3",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("metadata report", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "dev").Write(createMetadataReport()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		if !strings.Contains(output, "### Metadata") || !strings.Contains(output, "num_links") {
			t.Errorf("expected metadata table, got %s", output)
		}
		if strings.Contains(output, "### Assets") {
			t.Error("metadata report must not list assets")
		}
	})

	t.Run("failed page", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, "dev").Write(createFailedReport()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "[!CAUTION]") {
			t.Errorf("expected caution alert, got %s", buf.String())
		}
	})
}

// TestNew tests writer selection.
func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, ok := New(&buf, FormatSimple, Options{}).(*SimpleWriter); !ok {
		t.Error("expected SimpleWriter")
	}
	if _, ok := New(&buf, FormatJSON, Options{}).(*JSONWriter); !ok {
		t.Error("expected JSONWriter")
	}
	if _, ok := New(&buf, FormatMarkdown, Options{}).(*MarkdownWriter); !ok {
		t.Error("expected MarkdownWriter")
	}
}
