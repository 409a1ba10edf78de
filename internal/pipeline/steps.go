package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/pagemirror/internal/crawler"
	"github.com/nao1215/pagemirror/internal/mirror"
	"github.com/nao1215/pagemirror/internal/model"
)

// Step ordering errors. They mean a pipeline was assembled wrongly.
var (
	// ErrNoBody is returned by ParseStep when no page body was fetched.
	ErrNoBody = errors.New("no page body to parse")

	// ErrNoDocument is returned when a step needs a parsed document and there is none.
	ErrNoDocument = errors.New("no parsed document")
)

// FetchStep downloads the page itself.
type FetchStep struct {
	fetcher mirror.Fetcher
	target  *model.Target
	logger  *slog.Logger
}

// NewFetchStep creates a step that fetches target into report.Body.
func NewFetchStep(fetcher mirror.Fetcher, target *model.Target, logger *slog.Logger) *FetchStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchStep{fetcher: fetcher, target: target, logger: logger}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do executes the fetch step.
func (s *FetchStep) Do(ctx context.Context, report *model.MirrorReport) error {
	body, err := s.fetcher.Fetch(ctx, s.target.String())
	if err != nil {
		return err
	}
	report.Body = body

	s.logger.Debug("page fetched", "target", s.target.String(), "bytes", len(body))
	return nil
}

// ParseStep parses report.Body into report.Document.
type ParseStep struct{}

// NewParseStep creates a parse step.
func NewParseStep() *ParseStep {
	return &ParseStep{}
}

// Name returns the step name.
func (s *ParseStep) Name() string {
	return "parse"
}

// Do executes the parse step.
func (s *ParseStep) Do(_ context.Context, report *model.MirrorReport) error {
	if report.Body == nil {
		return model.NewParseError("parse HTML", ErrNoBody)
	}
	doc, err := crawler.Parse(bytes.NewReader(report.Body))
	if err != nil {
		return err
	}
	report.Document = doc
	return nil
}

// SaveStep localizes the page's assets and writes the rewritten page.
type SaveStep struct {
	saver  *mirror.Saver
	target *model.Target
}

// NewSaveStep creates a save step.
func NewSaveStep(saver *mirror.Saver, target *model.Target) *SaveStep {
	return &SaveStep{saver: saver, target: target}
}

// Name returns the step name.
func (s *SaveStep) Name() string {
	return "save"
}

// Do executes the save step.
func (s *SaveStep) Do(ctx context.Context, report *model.MirrorReport) error {
	if report.Document == nil {
		return model.NewParseError("save page", ErrNoDocument)
	}
	return s.saver.Save(ctx, report.Document, s.target, report)
}

// MetadataStep records link/image counts and the fetch time.
type MetadataStep struct {
	reporter *mirror.Reporter
	target   *model.Target
}

// NewMetadataStep creates a metadata step.
func NewMetadataStep(reporter *mirror.Reporter, target *model.Target) *MetadataStep {
	return &MetadataStep{reporter: reporter, target: target}
}

// Name returns the step name.
func (s *MetadataStep) Name() string {
	return "metadata"
}

// Do executes the metadata step.
func (s *MetadataStep) Do(_ context.Context, report *model.MirrorReport) error {
	if report.Document == nil {
		return model.NewParseError("report metadata", ErrNoDocument)
	}
	meta, err := s.reporter.Report(report.Document, s.target)
	if err != nil {
		return err
	}
	report.Metadata = meta
	return nil
}

// Components are the collaborators one page's pipeline is built from.
// Saver is used in mirror mode and Reporter in metadata mode.
type Components struct {
	Fetcher  mirror.Fetcher
	Saver    *mirror.Saver
	Reporter *mirror.Reporter
	Logger   *slog.Logger
}

// Build assembles the pipeline for one page:
//
//	mirror:   fetch → parse → save
//	metadata: fetch → parse → metadata
func Build(mode model.Mode, target *model.Target, c Components) *Pipeline {
	p := New(WithLogger(c.Logger))
	p.AddSteps(
		NewFetchStep(c.Fetcher, target, c.Logger),
		NewParseStep(),
	)

	switch mode {
	case model.ModeMetadata:
		p.AddStep(NewMetadataStep(c.Reporter, target))
	default:
		p.AddStep(NewSaveStep(c.Saver, target))
	}
	return p
}
