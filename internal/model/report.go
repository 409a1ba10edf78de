package model

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
)

// Mode selects what a run does with a page.
type Mode string

const (
	// ModeMirror downloads the page and its assets and rewrites the HTML.
	ModeMirror Mode = "mirror"

	// ModeMetadata only reports link/image counts and the last fetch time.
	ModeMetadata Mode = "metadata"
)

// MirrorReport is the result of processing one page.
// Pipeline steps fill it in as they run; report writers and the history
// store read it afterwards.
type MirrorReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Target is the page URL.
	Target string `json:"target"`

	// Slug is the filesystem-safe page name.
	Slug string `json:"slug"`

	// Mode is the run mode.
	Mode Mode `json:"mode"`

	// StartedAt and FinishedAt bound the run (UTC).
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Body holds the fetched page bytes between the fetch and parse steps.
	Body []byte `json:"-"`

	// Document is the parsed page, mutated in place by tag rewriting.
	Document *goquery.Document `json:"-"`

	// PageDir is the directory the assets were written into.
	PageDir string `json:"page_dir,omitempty"`

	// HTMLPath is where the rewritten page was written.
	HTMLPath string `json:"html_path,omitempty"`

	// ContentHash is the SHA3-256 hex digest of the written HTML.
	ContentHash string `json:"content_hash,omitempty"`

	// Assets lists every asset reference processed, in category then document order.
	Assets []AssetOutcome `json:"assets,omitempty"`

	// Metadata is set in metadata mode.
	Metadata *MetadataReport `json:"metadata,omitempty"`

	// PerformedSteps names the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Error is the page-level failure, if any.
	Error error `json:"-"`

	// ErrorMessage is Error rendered as a string, kept for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewMirrorReport creates an empty report for target.
func NewMirrorReport(target string, mode Mode) *MirrorReport {
	return &MirrorReport{
		ID:        uuid.NewString(),
		Target:    target,
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Assets:    make([]AssetOutcome, 0),
	}
}

// AddAsset appends an asset outcome.
func (r *MirrorReport) AddAsset(o AssetOutcome) {
	r.Assets = append(r.Assets, o)
}

// SetError records a page-level failure.
func (r *MirrorReport) SetError(err error) {
	r.Error = err
	if err != nil {
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the page itself failed.
func (r *MirrorReport) Failed() bool {
	return r.ErrorMessage != ""
}

// Finish stamps the end time.
func (r *MirrorReport) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// AssetsSaved returns the number of assets downloaded and rewritten.
func (r *MirrorReport) AssetsSaved() int {
	n := 0
	for _, a := range r.Assets {
		if a.Saved() {
			n++
		}
	}
	return n
}

// AssetsFailed returns the number of assets that could not be saved.
func (r *MirrorReport) AssetsFailed() int {
	n := 0
	for _, a := range r.Assets {
		if a.Failed() {
			n++
		}
	}
	return n
}

// Failures returns the failed asset outcomes in processing order.
func (r *MirrorReport) Failures() []AssetOutcome {
	failures := make([]AssetOutcome, 0)
	for _, a := range r.Assets {
		if a.Failed() {
			failures = append(failures, a)
		}
	}
	return failures
}

// CategoryCounts returns saved and failed counts for one category.
func (r *MirrorReport) CategoryCounts(c AssetCategory) (saved, failed int) {
	for _, a := range r.Assets {
		if a.Category != c {
			continue
		}
		if a.Saved() {
			saved++
		}
		if a.Failed() {
			failed++
		}
	}
	return saved, failed
}

// LastFetchedUnavailable is reported when a page has never been fetched before.
const LastFetchedUnavailable = "N/A"

// MetadataReport is the metadata-mode summary of a page.
type MetadataReport struct {
	// Site is the page host.
	Site string `json:"site"`

	// NumLinks counts <a href> elements.
	NumLinks int `json:"num_links"`

	// Images counts <img src> elements.
	Images int `json:"images"`

	// LastFetched is the previous fetch timestamp, or LastFetchedUnavailable.
	LastFetched string `json:"last_fetched"`

	// FetchedAt is the timestamp appended to the fetch log by this run.
	FetchedAt string `json:"fetched_at"`
}
