package mirror

import (
	"errors"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nao1215/pagemirror/internal/model"
)

// ErrEmptyReference is returned when an asset reference sanitizes to nothing.
var ErrEmptyReference = errors.New("asset reference is empty")

var (
	// leadingSeparators matches the run of "." and "/" at the start of a reference.
	leadingSeparators = regexp.MustCompile(`^[./]+`)

	// unsafePathChars matches every character not allowed in a localized path.
	unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._/-]`)
)

// ResolveFetchURL returns the absolute URL an asset reference is downloaded from.
//
// References that start with "scheme://" are returned unchanged.
// Everything else, including root-relative references, is joined onto the
// page directory (see model.Target.DirURL).
//
// Protocol-relative references ("//cdn.example.com/x.js") are the one
// exception to that join: they take the page's scheme and keep their own
// host, instead of becoming "<page dir>/cdn.example.com/x.js".
func ResolveFetchURL(raw string, target *model.Target) string {
	if model.HasScheme(raw) {
		return raw
	}
	if strings.HasPrefix(raw, "//") {
		return target.Scheme() + ":" + raw
	}

	base := strings.TrimRight(target.DirURL(), "/") + "/"
	rel := strings.TrimLeft(raw, "/")

	baseURL, err := url.Parse(base)
	if err != nil {
		return base + rel
	}
	relURL, err := url.Parse(rel)
	if err != nil || relURL.Scheme != "" {
		return base + rel
	}
	return baseURL.ResolveReference(relURL).String()
}

// SanitizePath turns an asset reference into a relative, slash-separated path.
//
// The scheme prefix and any leading "." or "/" run are removed, characters
// outside [A-Za-z0-9._/-] become "_", and segments made only of dots become
// underscores so the result never points outside the directory it is joined to.
// SanitizePath is idempotent.
func SanitizePath(raw string) string {
	p := raw
	if model.HasScheme(p) {
		p = p[strings.Index(p, "://")+len("://"):]
	}
	p = leadingSeparators.ReplaceAllString(p, "")
	p = unsafePathChars.ReplaceAllString(p, "_")

	segments := strings.Split(p, "/")
	for i, seg := range segments {
		if seg != "" && strings.Trim(seg, ".") == "" {
			segments[i] = strings.Repeat("_", len(seg))
		}
	}
	return strings.Join(segments, "/")
}

// LocalizePath returns the file an asset reference is saved to under dir.
func LocalizePath(raw, dir string) (string, error) {
	rel := SanitizePath(raw)
	if strings.Trim(rel, "/") == "" {
		return "", ErrEmptyReference
	}
	return filepath.Join(dir, filepath.FromSlash(rel)), nil
}

// isInlineData reports whether a reference embeds its content as a data URI.
func isInlineData(raw string) bool {
	return len(raw) >= len("data:") && strings.EqualFold(raw[:len("data:")], "data:")
}
