package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/pagemirror/internal/model"
)

// Factory builds a fresh pipeline for one page.
type Factory func(target *model.Target) (*Pipeline, error)

// BatchProcessor runs one pipeline per page with bounded concurrency.
// With the default concurrency of 1 pages are processed strictly one after
// another in argument order.
type BatchProcessor struct {
	// factory creates the pipeline for each page.
	factory Factory

	// mode is recorded in every report.
	mode model.Mode

	// concurrency is the maximum number of pages processed at once.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pages processed at once.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(mode model.Mode, factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		mode:        mode,
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// Process runs the pipeline for a single page and returns its report.
// Failures never escape: they are recorded in the report.
func (bp *BatchProcessor) Process(ctx context.Context, raw string) *model.MirrorReport {
	report := model.NewMirrorReport(raw, bp.mode)
	defer report.Finish()

	target, err := model.NewTarget(raw)
	if err != nil {
		report.SetError(model.NewFetchError("GET "+raw, err))
		return report
	}
	report.Target = target.String()
	report.Slug = target.Slug()

	p, err := bp.factory(target)
	if err != nil {
		report.SetError(err)
		return report
	}

	if err := p.Execute(ctx, report); err != nil {
		bp.logger.Warn("page failed",
			"target", report.Target,
			"error", err,
		)
	}

	// The parsed page is only needed while the steps run.
	report.Body = nil
	report.Document = nil
	return report
}

// ProcessBatchWithCallback processes every page and calls callback as each
// one completes. The callback receives the report and the page's index in
// targets. With concurrency above 1 it may be called from several goroutines
// at once.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(report *model.MirrorReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_pages", len(targets),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, raw := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("processing page",
				"target", raw,
				"index", i+1,
				"total", len(targets),
			)

			callback(bp.Process(ctx, raw), i)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_pages", len(targets),
		"elapsed", time.Since(startTime),
	)
	return err
}
