// Package log builds the structured logger used by pagemirror.
//
// It wraps log/slog with a SecureHandler that masks credentials before they
// are written: cookies and auth headers coming from the site configuration,
// bearer/basic values, and passwords embedded in URLs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("request headers", "cookie", "session=abc") // cookie=***REDACTED***
package log
