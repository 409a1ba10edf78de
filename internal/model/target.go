package model

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidTarget is returned when a page URL cannot be turned into a Target.
var ErrInvalidTarget = errors.New("invalid target URL")

// Target is the page being mirrored.
// It is immutable once constructed and owned by a single run.
type Target struct {
	// raw is the URL as given, with one trailing slash removed.
	raw string

	// u is the parsed form of raw.
	u *url.URL
}

// NewTarget builds a Target from a command-line argument.
//
// Exactly one trailing slash is removed, so "http://example.com/" and
// "http://example.com" produce the same slug. Arguments without a
// scheme are treated as http URLs.
func NewTarget(raw string) (*Target, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSuffix(raw, "/")
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", ErrInvalidTarget)
	}
	if !HasScheme(raw) {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidTarget, raw)
	}

	return &Target{raw: raw, u: u}, nil
}

// String returns the target URL.
func (t *Target) String() string {
	return t.raw
}

// Scheme returns the URL scheme, e.g. "https".
func (t *Target) Scheme() string {
	return t.u.Scheme
}

// Host returns the host (and port, if any) of the target.
func (t *Target) Host() string {
	return t.u.Host
}

// Path returns the path component of the target. It is empty for a bare host.
func (t *Target) Path() string {
	return t.u.Path
}

// Slug returns the filesystem-safe name of the target: host and escaped
// path with every "/" replaced by "_". Percent-escapes are kept, so an
// encoded "%2F" stays inside its segment.
//
//	http://example.com/blog/post -> example.com_blog_post
//	http://example.com/a%20b     -> example.com_a%20b
func (t *Target) Slug() string {
	return strings.ReplaceAll(t.u.Host+t.u.EscapedPath(), "/", "_")
}

// DirURL returns the URL relative references are joined against.
// For a bare host this is the full target URL. Otherwise it is the
// target with its final path segment removed.
func (t *Target) DirURL() string {
	if t.u.Path == "" {
		return t.raw
	}
	dir := path.Dir(t.u.Path)
	if dir == "/" {
		dir = ""
	}
	return t.u.Scheme + "://" + t.u.Host + dir
}

// HasScheme reports whether s starts with "scheme://".
func HasScheme(s string) bool {
	i := strings.Index(s, "://")
	if i <= 0 {
		return false
	}
	for _, c := range s[:i] {
		if !isSchemeChar(c) {
			return false
		}
	}
	return true
}

// isSchemeChar reports whether c may appear in a URL scheme.
func isSchemeChar(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '+' || c == '-' || c == '.'
}
