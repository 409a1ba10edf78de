package mirror

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/pagemirror/internal/crawler"
	"github.com/nao1215/pagemirror/internal/model"
)

// TimestampLayout is the format of fetch log lines.
const TimestampLayout = "2006-01-02 15:04:05 UTC"

// FetchLog is the append-only list of times a page was fetched, one per line.
type FetchLog struct {
	path string
}

// NewFetchLog returns the fetch log stored at path.
func NewFetchLog(path string) *FetchLog {
	return &FetchLog{path: path}
}

// Path returns the log file path.
func (l *FetchLog) Path() string {
	return l.path
}

// Last returns the most recent timestamp, or model.LastFetchedUnavailable
// when the page has never been fetched.
func (l *FetchLog) Last() (string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.LastFetchedUnavailable, nil
	}
	if err != nil {
		return "", model.NewIOError("open fetch log", err)
	}
	defer f.Close()

	last := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			last = line
		}
	}
	if err := scanner.Err(); err != nil {
		return "", model.NewIOError("read fetch log", err)
	}
	if last == "" {
		return model.LastFetchedUnavailable, nil
	}
	return last, nil
}

// Append adds a timestamp line, creating the log and its directory if needed.
func (l *FetchLog) Append(timestamp string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), dirMode); err != nil {
		return model.NewIOError("create log directory", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logMode)
	if err != nil {
		return model.NewIOError("open fetch log", err)
	}
	if _, err := f.WriteString(timestamp + "\n"); err != nil {
		_ = f.Close() //nolint:errcheck // write error takes precedence
		return model.NewIOError("append fetch log", err)
	}
	if err := f.Close(); err != nil {
		return model.NewIOError("close fetch log", err)
	}
	return nil
}

// Reporter produces the metadata summary of a page.
type Reporter struct {
	layout Layout
	opts   options
}

// NewReporter creates a Reporter that keeps fetch logs under layout.LogDir.
func NewReporter(layout Layout, opts ...Option) *Reporter {
	return &Reporter{
		layout: layout,
		opts:   newOptions(opts),
	}
}

// Report counts the links and images of doc, reads the previous fetch time
// and then records this fetch.
func (r *Reporter) Report(doc *goquery.Document, target *model.Target) (*model.MetadataReport, error) {
	log := NewFetchLog(r.layout.LogPath(target))

	last, err := log.Last()
	if err != nil {
		return nil, err
	}

	now := r.opts.now().UTC().Format(TimestampLayout)
	if err := log.Append(now); err != nil {
		return nil, err
	}

	r.opts.logger.Debug("fetch logged", "target", target.String(), "log", log.Path())

	return &model.MetadataReport{
		Site:        target.Host(),
		NumLinks:    crawler.CountLinks(doc),
		Images:      crawler.CountImages(doc),
		LastFetched: last,
		FetchedAt:   now,
	}, nil
}
