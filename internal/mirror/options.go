package mirror

import (
	"log/slog"
	"time"
)

// defaultErrorMaxLength bounds asset failure messages.
const defaultErrorMaxLength = 100

// options are shared by the Downloader, Saver and Reporter.
type options struct {
	logger         *slog.Logger
	errorMaxLength int
	now            func() time.Time
}

// Option configures a mirror component.
type Option func(*options)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithErrorMaxLength sets how many characters of an asset failure message are kept.
func WithErrorMaxLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.errorMaxLength = n
		}
	}
}

// WithClock replaces time.Now for fetch log timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:         slog.Default(),
		errorMaxLength: defaultErrorMaxLength,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
