package mirror

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/pagemirror/internal/crawler"
	"github.com/nao1215/pagemirror/internal/model"
)

// Fetcher retrieves the body of a URL.
// *fetch.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Downloader saves assets locally and rewrites the tags that reference them.
// Assets are processed one at a time; a failed asset never stops the rest.
type Downloader struct {
	fetcher Fetcher
	layout  Layout
	opts    options
}

// NewDownloader creates a Downloader.
func NewDownloader(fetcher Fetcher, layout Layout, opts ...Option) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		layout:  layout,
		opts:    newOptions(opts),
	}
}

// DownloadAll localizes every located asset of a page, category by
// category, and records each outcome in report.
func (d *Downloader) DownloadAll(ctx context.Context, assets crawler.Assets, target *model.Target, report *model.MirrorReport) {
	for _, category := range model.AssetCategories {
		dir := d.layout.AssetDir(target, category)
		for _, ref := range assets.ByCategory(category) {
			report.AddAsset(d.Localize(ctx, ref, category, dir, target))
		}
	}
}

// Localize downloads one asset into dir and, on success, points its tag at the local copy.
// On failure the tag keeps its original value and the outcome carries the
// truncated error message.
func (d *Downloader) Localize(ctx context.Context, ref crawler.AssetRef, category model.AssetCategory, dir string, target *model.Target) model.AssetOutcome {
	outcome := model.AssetOutcome{
		Category:  category,
		Attribute: ref.Attribute,
		Original:  ref.URL,
		Dir:       dir,
	}

	if isInlineData(ref.URL) {
		outcome.Skipped = true
		return outcome
	}

	if err := d.localize(ctx, ref, dir, target, &outcome); err != nil {
		outcome.Error = truncate(err.Error(), d.opts.errorMaxLength)
		d.opts.logger.Debug("asset failed",
			"category", category.String(),
			"reference", ref.URL,
			"error", err,
		)
	}
	return outcome
}

func (d *Downloader) localize(ctx context.Context, ref crawler.AssetRef, dir string, target *model.Target, outcome *model.AssetOutcome) error {
	outcome.FetchURL = ResolveFetchURL(ref.URL, target)

	localPath, err := LocalizePath(ref.URL, dir)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(localPath), dirMode); err != nil {
		return model.NewIOError("create asset directory", err)
	}

	data, err := d.fetcher.Fetch(ctx, outcome.FetchURL)
	if err != nil {
		return err
	}

	if err := os.WriteFile(localPath, data, fileMode); err != nil { //nolint:gosec // mirrored assets are served as-is
		return model.NewIOError("write asset", err)
	}

	rewritten, err := d.layout.Reference(localPath)
	if err != nil {
		return model.NewIOError("rewrite reference", fmt.Errorf("%s: %w", localPath, err))
	}
	ref.SetURL(rewritten)

	outcome.LocalPath = localPath
	outcome.Rewritten = rewritten

	d.opts.logger.Debug("asset saved",
		"url", outcome.FetchURL,
		"path", localPath,
		"bytes", len(data),
	)
	return nil
}
