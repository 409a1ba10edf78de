package mirror

import (
	"context"
	"encoding/hex"
	"os"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/pagemirror/internal/crawler"
	"github.com/nao1215/pagemirror/internal/model"
)

// Saver writes a mirrored page: its assets under a fresh page directory and
// the rewritten HTML next to them.
type Saver struct {
	downloader *Downloader
	layout     Layout
	opts       options
}

// NewSaver creates a Saver that downloads assets with fetcher.
func NewSaver(fetcher Fetcher, layout Layout, opts ...Option) *Saver {
	return &Saver{
		downloader: NewDownloader(fetcher, layout, opts...),
		layout:     layout,
		opts:       newOptions(opts),
	}
}

// Save replaces the page directory of target, localizes every asset of doc
// and writes the rewritten document.
//
// Asset failures are recorded in report and do not fail the save.
// The returned error is a page-level failure; anything written before it
// stays on disk.
func (s *Saver) Save(ctx context.Context, doc *goquery.Document, target *model.Target, report *model.MirrorReport) error {
	if err := os.MkdirAll(s.layout.OutputRoot, dirMode); err != nil {
		return model.NewIOError("create output root", err)
	}

	pageDir := s.layout.PageDir(target)
	if err := os.RemoveAll(pageDir); err != nil {
		return model.NewIOError("remove previous page directory", err)
	}
	if err := os.MkdirAll(pageDir, dirMode); err != nil {
		return model.NewIOError("create page directory", err)
	}
	report.PageDir = pageDir

	s.downloader.DownloadAll(ctx, crawler.Locate(doc), target, report)

	content, err := crawler.Render(doc)
	if err != nil {
		return err
	}

	htmlPath := s.layout.HTMLPath(target)
	if err := os.MkdirAll(s.layout.HTMLDir, dirMode); err != nil {
		return model.NewIOError("create HTML directory", err)
	}
	if err := os.WriteFile(htmlPath, content, fileMode); err != nil { //nolint:gosec // mirrored pages are served as-is
		return model.NewIOError("write HTML", err)
	}

	sum := sha3.Sum256(content)
	report.HTMLPath = htmlPath
	report.ContentHash = hex.EncodeToString(sum[:])

	s.opts.logger.Debug("page saved",
		"target", target.String(),
		"html", htmlPath,
		"assets_saved", report.AssetsSaved(),
		"assets_failed", report.AssetsFailed(),
	)
	return nil
}
