package mirror

import (
	"fmt"
	"path/filepath"

	"github.com/nao1215/pagemirror/internal/model"
)

// File modes for mirrored output. Pages are written to be served as-is.
const (
	dirMode  = 0o755
	fileMode = 0o644
	logMode  = 0o600
)

// Layout decides where a page's files go on disk.
//
//	<OutputRoot>/<slug>/images/...
//	<OutputRoot>/<slug>/js/...
//	<OutputRoot>/<slug>/css/...
//	<HTMLDir>/<slug>.html
//	<LogDir>/<slug>.txt
type Layout struct {
	// OutputRoot holds one directory per page.
	OutputRoot string

	// HTMLDir holds the rewritten pages. Rewritten asset references are relative to it.
	HTMLDir string

	// LogDir holds the metadata-mode fetch logs.
	LogDir string
}

// PageDir returns the directory a page's assets are saved into.
func (l Layout) PageDir(t *model.Target) string {
	return filepath.Join(l.OutputRoot, t.Slug())
}

// AssetDir returns the category subdirectory of a page directory.
func (l Layout) AssetDir(t *model.Target, c model.AssetCategory) string {
	return filepath.Join(l.PageDir(t), c.DirName())
}

// HTMLPath returns the file the rewritten page is written to.
func (l Layout) HTMLPath(t *model.Target) string {
	return filepath.Join(l.HTMLDir, t.Slug()+".html")
}

// LogPath returns the fetch log of a page.
func (l Layout) LogPath(t *model.Target) string {
	return filepath.Join(l.LogDir, t.Slug()+".txt")
}

// Reference returns the slash-separated path of a saved file relative to
// HTMLDir. It is the value written into rewritten tags.
func (l Layout) Reference(localPath string) (string, error) {
	base, err := filepath.Abs(l.HTMLDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve HTML directory: %w", err)
	}
	target, err := filepath.Abs(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", localPath, err)
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
