package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pagemirror/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "pagemirror.db"

// storedTimeLayout is how run times are written. It sorts lexically.
const storedTimeLayout = "2006-01-02 15:04:05.000"

// HistoryDB stores one row per processed page.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// With CreateIfNotExists false, a missing database is an error.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("history database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer. Batch runs save from several goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS mirror_runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		slug TEXT NOT NULL,
		mode TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		html_path TEXT,
		content_hash TEXT,
		assets_saved INTEGER DEFAULT 0,
		assets_failed INTEGER DEFAULT 0,
		error TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON mirror_runs(target);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON mirror_runs(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the summary of one stored run.
type RunRecord struct {
	ID           string    `json:"id"`
	Target       string    `json:"target"`
	Slug         string    `json:"slug"`
	Mode         string    `json:"mode"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	HTMLPath     string    `json:"html_path,omitempty"`
	ContentHash  string    `json:"content_hash,omitempty"`
	AssetsSaved  int       `json:"assets_saved"`
	AssetsFailed int       `json:"assets_failed"`
	Error        string    `json:"error,omitempty"` //nolint:tagliatelle // error is conventional
}

// Failed reports whether the run ended with a page-level failure.
func (r RunRecord) Failed() bool {
	return r.Error != ""
}

// SaveRun stores the outcome of one page.
func (hdb *HistoryDB) SaveRun(ctx context.Context, report *model.MirrorReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now().UTC()
	}

	query := `
	INSERT INTO mirror_runs (id, target, slug, mode, started_at, finished_at, html_path,
		content_hash, assets_saved, assets_failed, error, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.ID,
		report.Target,
		report.Slug,
		string(report.Mode),
		formatTime(report.StartedAt),
		formatTime(finished),
		report.HTMLPath,
		report.ContentHash,
		report.AssetsSaved(),
		report.AssetsFailed(),
		report.ErrorMessage,
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// ListRuns returns the runs of target, newest first.
// A limit of zero or less returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, target string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, target, slug, mode, started_at, finished_at, html_path, content_hash,
		assets_saved, assets_failed, error
	FROM mirror_runs
	WHERE target = ?
	ORDER BY started_at DESC, rowid DESC
	`
	args := []any{target}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0)
	for rows.Next() {
		var (
			rec                   RunRecord
			started, finished     string
			htmlPath, hash, errMs sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Target,
			&rec.Slug,
			&rec.Mode,
			&started,
			&finished,
			&htmlPath,
			&hash,
			&rec.AssetsSaved,
			&rec.AssetsFailed,
			&errMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		rec.StartedAt = parseTimestamp(started)
		rec.FinishedAt = parseTimestamp(finished)
		rec.HTMLPath = htmlPath.String
		rec.ContentHash = hash.String
		rec.Error = errMs.String
		records = append(records, rec)
	}

	return records, rows.Err()
}

// SiteSummary describes every stored run of one target.
type SiteSummary struct {
	Target  string    `json:"target"`
	Runs    int       `json:"runs"`
	LastRun time.Time `json:"last_run"`
}

// ListSites returns every target with stored runs, ordered by target.
func (hdb *HistoryDB) ListSites(ctx context.Context) ([]SiteSummary, error) {
	query := `
	SELECT target, COUNT(*), MAX(started_at)
	FROM mirror_runs
	GROUP BY target
	ORDER BY target
	`

	rows, err := hdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	sites := make([]SiteSummary, 0)
	for rows.Next() {
		var (
			site    SiteSummary
			lastRun string
		)
		if err := rows.Scan(&site.Target, &site.Runs, &lastRun); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		site.LastRun = parseTimestamp(lastRun)
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// GetRun returns the full report of a run, or nil if id is unknown.
func (hdb *HistoryDB) GetRun(ctx context.Context, id string) (*model.MirrorReport, error) {
	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, "SELECT report_json FROM mirror_runs WHERE id = ?", id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// formatTime renders t in UTC for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeLayout)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",  // stored format; fractional seconds are accepted
	"2006-01-02T15:04:05Z", // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",  // ISO 8601 without timezone
	time.RFC3339,
	time.RFC3339Nano,
}

// parseTimestamp parses a stored timestamp, returning zero time if no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
