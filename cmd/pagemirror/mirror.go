package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/nao1215/pagemirror/internal/config"
	"github.com/nao1215/pagemirror/internal/database"
	"github.com/nao1215/pagemirror/internal/fetch"
	pmlog "github.com/nao1215/pagemirror/internal/log"
	"github.com/nao1215/pagemirror/internal/mirror"
	"github.com/nao1215/pagemirror/internal/model"
	"github.com/nao1215/pagemirror/internal/pipeline"
	"github.com/nao1215/pagemirror/internal/report"
)

// addMirrorFlags registers the flags of the mirror operation.
func addMirrorFlags(cmd *cobra.Command) {
	// Mode
	cmd.Flags().Bool("metadata", false,
		"Print link/image counts and the last fetch time instead of saving pages")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Duration("delay", config.DefaultRequestDelay,
		"Minimum delay between requests (e.g. 500ms)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy at host:port")

	// Output layout
	cmd.Flags().StringP("output-dir", "o", config.DefaultOutputRoot,
		"Directory receiving sources/<slug>/ asset folders")
	cmd.Flags().String("html-dir", config.DefaultHTMLDir,
		"Directory receiving <slug>.html files")
	cmd.Flags().String("log-dir", config.DefaultLogDir,
		"Directory receiving per-page fetch logs used by --metadata")

	// Batch processing
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of pages processed concurrently (1 keeps argument order)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagemirror in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON reports (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown reports (mutually exclusive with --json)")
	cmd.Flags().Bool("no-color", false,
		"Disable colored output")

	// History
	cmd.Flags().Bool("no-history", false,
		"Do not record runs in the history database")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory holding the history database")
}

// runMirrorCmd executes the mirror operation.
func runMirrorCmd(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ExpandPaths(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := pmlog.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runMirror(ctx, cfg, cmd.OutOrStdout(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.Metadata, err = flags.GetBool("metadata"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.RequestDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.OutputRoot, err = flags.GetString("output-dir"); err != nil {
		return nil, err
	}
	if cfg.HTMLDir, err = flags.GetString("html-dir"); err != nil {
		return nil, err
	}
	if cfg.LogDir, err = flags.GetString("log-dir"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.NoColor, err = flags.GetBool("no-color"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveHistory = !noHistory
	if cfg.HistoryDir, err = flags.GetString("history-dir"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	if cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath); err != nil {
		return nil, err
	}

	cfg.Targets = args
	return cfg, nil
}

// loadSiteConfigs loads the configuration file.
// An explicitly given path must exist; otherwise a missing file means no site settings.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	configPath := config.FindConfigFile(explicitPath)
	if configPath == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}
	return cf, nil
}

// reportFormat maps the report flags to a writer format.
func reportFormat(cfg *config.Config) report.Format {
	switch {
	case cfg.JSONReport:
		return report.FormatJSON
	case cfg.MarkdownReport:
		return report.FormatMarkdown
	default:
		return report.FormatSimple
	}
}

// runMode maps the --metadata flag to a run mode.
func runMode(cfg *config.Config) model.Mode {
	if cfg.Metadata {
		return model.ModeMetadata
	}
	return model.ModeMirror
}

// runMirror processes every target and writes one report per page.
// Page failures are reported, never returned.
func runMirror(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	logger.Info("starting run",
		"targets", len(cfg.Targets),
		"mode", runMode(cfg),
		"batchSize", cfg.BatchSize,
		"saveHistory", cfg.SaveHistory,
	)

	history := openHistory(cfg, logger)
	if history != nil {
		defer history.Close()
	}

	writer := report.New(out, reportFormat(cfg), report.Options{
		NoColor: cfg.NoColor,
		Verbose: cfg.Verbose,
		Version: getVersion(),
	})

	layout := mirror.Layout{
		OutputRoot: cfg.OutputRoot,
		HTMLDir:    cfg.HTMLDir,
		LogDir:     cfg.LogDir,
	}

	// One limiter for the whole run, so --delay also spaces the first
	// request of each page from the previous page's last request.
	limiter := fetch.NewLimiter(cfg.RequestDelay)

	bp := pipeline.NewBatchProcessor(
		runMode(cfg),
		newPipelineFactory(cfg, layout, limiter, logger),
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	var mu sync.Mutex
	err := bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r *model.MirrorReport, _ int) {
		mu.Lock()
		defer mu.Unlock()

		if _, err := writer.Write(r); err != nil {
			logger.Error("failed to write report", "target", r.Target, "error", err)
		}
		saveRun(ctx, history, r, logger)
	})
	if errors.Is(err, context.Canceled) {
		return errors.New("interrupted")
	}
	return err
}

// newPipelineFactory returns a factory building a page pipeline with the
// site settings of the page's host. Every page's client waits on limiter.
func newPipelineFactory(cfg *config.Config, layout mirror.Layout, limiter *rate.Limiter, logger *slog.Logger) pipeline.Factory {
	mode := runMode(cfg)

	return func(target *model.Target) (*pipeline.Pipeline, error) {
		site := cfg.SiteConfigs.GetSiteConfig(target.Host())

		httpClient, err := fetch.NewHTTPClient(fetch.TransportOptions{
			Timeout:      cfg.Timeout,
			ProxyAddress: cfg.ProxyAddress,
			Host:         target.Host(),
			Cookie:       site.Cookie,
			Headers:      site.Headers,
		})
		if err != nil {
			return nil, model.NewFetchError("configure client for "+target.Host(), err)
		}

		userAgent := cfg.UserAgent
		if site.UserAgent != "" {
			userAgent = site.UserAgent
		}

		client := fetch.NewClient(
			fetch.WithHTTPClient(httpClient),
			fetch.WithUserAgent(userAgent),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithLimiter(limiter),
			fetch.WithLogger(logger),
		)

		mirrorOpts := []mirror.Option{
			mirror.WithLogger(logger),
			mirror.WithErrorMaxLength(cfg.ErrorMaxLength),
		}

		p := pipeline.Build(mode, target, pipeline.Components{
			Fetcher:  client,
			Saver:    mirror.NewSaver(client, layout, mirrorOpts...),
			Reporter: mirror.NewReporter(layout, mirrorOpts...),
			Logger:   logger,
		})
		logger.Debug("pipeline built",
			"target", target.String(),
			"steps", p.StepNames(),
		)
		return p, nil
	}
}

// openHistory opens the history database when enabled.
// A database that cannot be opened disables history for this run.
func openHistory(cfg *config.Config, logger *slog.Logger) *database.HistoryDB {
	if !cfg.SaveHistory {
		return nil
	}

	db, err := database.Open(cfg.HistoryDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("history disabled: failed to open database",
			"dir", cfg.HistoryDir,
			"error", err,
		)
		return nil
	}
	logger.Debug("history database opened", "path", db.Path())
	return db
}

// saveRun records the report in the history database.
// If db is nil, this function is a no-op.
func saveRun(ctx context.Context, db *database.HistoryDB, r *model.MirrorReport, logger *slog.Logger) {
	if db == nil {
		return
	}
	if err := db.SaveRun(context.WithoutCancel(ctx), r); err != nil {
		logger.Error("failed to save run", "target", r.Target, "error", err)
		return
	}
	logger.Debug("run saved", "target", r.Target, "id", r.ID)
}
