package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pagemirror"

	// DefaultOutputRoot is the folder every page directory is created under.
	DefaultOutputRoot = "sources"

	// DefaultHTMLDir is where rewritten <slug>.html files are written.
	// Asset references in the HTML are relative to this directory.
	DefaultHTMLDir = "."

	// DefaultLogDir holds the metadata-mode fetch logs.
	DefaultLogDir = "logs"

	// DefaultTimeout bounds each HTTP request, including reading the body.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestDelay is the pause enforced between requests. Zero disables pacing.
	DefaultRequestDelay time.Duration = 0

	// DefaultMaxBodySize limits how much of a response is read.
	// 50MB leaves room for large images and bundled scripts.
	DefaultMaxBodySize = 50 * 1024 * 1024

	// DefaultErrorMaxLength bounds asset failure messages so a single
	// verbose error cannot flood the terminal.
	DefaultErrorMaxLength = 100

	// DefaultBatchSize of 1 processes pages strictly one after another.
	DefaultBatchSize = 1

	// DefaultUserAgent identifies pagemirror in HTTP requests.
	DefaultUserAgent = "pagemirror/1.0 (+https://github.com/nao1215/pagemirror)"
)

// Config holds all options for a pagemirror run.
// It is populated from CLI flags and passed down explicitly; nothing reads global state.
type Config struct {
	// Targets are the page URLs to process, in argument order.
	Targets []string

	// Metadata switches every target from mirroring to metadata reporting.
	Metadata bool

	// OutputRoot is the directory page directories are created in.
	OutputRoot string

	// HTMLDir is the directory rewritten HTML files are written to.
	HTMLDir string

	// LogDir is the directory fetch logs are appended to.
	LogDir string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// RequestDelay is the minimum interval between two requests.
	RequestDelay time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// MaxBodySize is the maximum number of response bytes read.
	MaxBodySize int64

	// ErrorMaxLength is the number of characters kept from asset failure messages.
	ErrorMaxLength int

	// BatchSize is the number of pages processed concurrently.
	BatchSize int

	// ConfigFilePath is the explicit config file path. Empty means search.
	ConfigFilePath string

	// SiteConfigs holds per-site settings loaded from the config file.
	SiteConfigs *File

	// JSONReport prints reports as JSON.
	JSONReport bool

	// MarkdownReport prints reports as Markdown.
	MarkdownReport bool

	// NoColor disables ANSI colors in terminal output.
	NoColor bool

	// Verbose enables debug logging.
	Verbose bool

	// SaveHistory records every run in the history database.
	SaveHistory bool

	// HistoryDir is the directory holding the history database.
	HistoryDir string
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputRoot:     DefaultOutputRoot,
		HTMLDir:        DefaultHTMLDir,
		LogDir:         DefaultLogDir,
		Timeout:        DefaultTimeout,
		RequestDelay:   DefaultRequestDelay,
		UserAgent:      DefaultUserAgent,
		MaxBodySize:    DefaultMaxBodySize,
		ErrorMaxLength: DefaultErrorMaxLength,
		BatchSize:      DefaultBatchSize,
		SaveHistory:    true,
		HistoryDir:     XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pagemirror.
// On Linux: ~/.local/share/pagemirror
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ExpandPaths expands a leading "~" in every path option.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.OutputRoot, &c.HTMLDir, &c.LogDir, &c.HistoryDir, &c.ConfigFilePath} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
//
// An empty target list is not an error here: running without URLs is a no-op.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.ErrorMaxLength <= 0 {
		return ErrInvalidErrorMaxLength
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.OutputRoot == "" {
		return ErrEmptyOutputRoot
	}
	if c.ProxyAddress != "" && !isValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}
	return nil
}

// isValidProxyAddress checks for a "host:port" address with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
