package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagemirror/internal/config"
	"github.com/nao1215/pagemirror/internal/database"
	"github.com/nao1215/pagemirror/internal/model"
	"github.com/nao1215/pagemirror/internal/report"
)

// defaultHistoryLimit is the number of runs listed when --limit is not given.
const defaultHistoryLimit = 20

// errNoHistoryQuery is returned when neither a URL nor a listing flag is given.
var errNoHistoryQuery = errors.New("specify a URL, --run <id>, or --list-sites")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Show previous runs recorded in the history database",
		Long: `History lists the runs recorded by previous pagemirror invocations.

Every processed page is recorded with its outcome, the number of saved and
failed assets, and the SHA3-256 digest of the saved HTML.

Examples:
  # List every recorded site
  pagemirror history --list-sites

  # List the last runs of a page, newest first
  pagemirror history https://example.com/blog

  # Show the full report of one run
  pagemirror history --run 1b4e28ba-2fa1-11d2-883f-0016d3cca427

  # Output JSON
  pagemirror history --json https://example.com/blog`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("list-sites", false,
		"List every site with its number of runs")
	cmd.Flags().String("run", "",
		"Show the stored report of the run with this ID")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")
	cmd.Flags().String("history-dir", config.XDGDataDir(),
		"Directory holding the history database")

	return cmd
}

// historyOptions holds the parsed history flags.
type historyOptions struct {
	listSites bool
	runID     string
	limit     int
	json      bool
	dir       string
}

// parseHistoryFlags reads the history command flags.
func parseHistoryFlags(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()

	if opts.listSites, err = flags.GetBool("list-sites"); err != nil {
		return opts, err
	}
	if opts.runID, err = flags.GetString("run"); err != nil {
		return opts, err
	}
	if opts.limit, err = flags.GetInt("limit"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.dir, err = flags.GetString("history-dir"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryFlags(cmd)
	if err != nil {
		return err
	}
	if !opts.listSites && opts.runID == "" && len(args) == 0 {
		return errNoHistoryQuery
	}
	if opts.limit < 0 {
		return fmt.Errorf("invalid limit %d: must be non-negative", opts.limit)
	}

	out := cmd.OutOrStdout()

	// Do not create an empty database just to report that it is empty.
	if _, err := os.Stat(filepath.Join(opts.dir, database.FileName)); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No history recorded yet.")
		return nil
	}

	db, err := database.Open(opts.dir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case opts.runID != "":
		stored, err := db.GetRun(ctx, opts.runID)
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		if stored == nil {
			return fmt.Errorf("run not found: %s", opts.runID)
		}
		format := report.FormatSimple
		if opts.json {
			format = report.FormatJSON
		}
		_, err = report.New(out, format, report.Options{NoColor: true, Verbose: true}).Write(stored)
		return err

	case opts.listSites:
		sites, err := db.ListSites(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sites: %w", err)
		}
		if opts.json {
			_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(sites)
			return err
		}
		printSites(out, sites)
		return nil

	default:
		target, err := model.NewTarget(args[0])
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", args[0], err)
		}
		runs, err := db.ListRuns(ctx, target.String(), opts.limit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if opts.json {
			_, err = report.NewJSONWriter(out, report.WithPrettyPrint()).WriteValue(runs)
			return err
		}
		printRuns(out, target.String(), runs)
		return nil
	}
}

// printSites writes the site listing.
func printSites(out io.Writer, sites []database.SiteSummary) {
	if len(sites) == 0 {
		fmt.Fprintln(out, "No history recorded yet.")
		return
	}

	fmt.Fprintf(out, "Mirrored sites (%d):\n\n", len(sites))
	fmt.Fprintf(out, "  %-5s  %-20s  %s\n", "Runs", "Last run", "URL")
	for _, s := range sites {
		fmt.Fprintf(out, "  %-5d  %-20s  %s\n", s.Runs, s.LastRun.Format("2006-01-02 15:04:05"), s.Target)
	}
}

// printRuns writes the runs of one page, newest first.
func printRuns(out io.Writer, target string, runs []database.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintf(out, "No history found for %s\n", target)
		return
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", target, len(runs))
	fmt.Fprintf(out, "  %-20s  %-8s  %-6s  %-6s  %-7s  %s\n", "Date", "Mode", "Saved", "Failed", "Status", "ID")
	for _, r := range runs {
		status := "ok"
		if r.Failed() {
			status = "error"
		}
		fmt.Fprintf(out, "  %-20s  %-8s  %-6d  %-6d  %-7s  %s\n",
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Mode,
			r.AssetsSaved,
			r.AssetsFailed,
			status,
			r.ID,
		)
	}
}
