package model

import "fmt"

// AssetCategory identifies which kind of asset a tag references.
// Each category is saved into its own subdirectory of the page directory.
type AssetCategory int

const (
	// CategoryImage covers <img src> elements.
	CategoryImage AssetCategory = iota

	// CategoryScript covers <script src> and <link as="script"> elements.
	CategoryScript

	// CategoryStylesheet covers <link rel="stylesheet"> elements.
	CategoryStylesheet
)

// AssetCategories lists every category in the order assets are processed.
var AssetCategories = []AssetCategory{CategoryImage, CategoryScript, CategoryStylesheet}

// String returns the category name.
func (c AssetCategory) String() string {
	switch c {
	case CategoryImage:
		return "images"
	case CategoryScript:
		return "scripts"
	case CategoryStylesheet:
		return "stylesheets"
	default:
		return "unknown"
	}
}

// DirName returns the subdirectory of the page directory the category is saved into.
func (c AssetCategory) DirName() string {
	switch c {
	case CategoryImage:
		return "images"
	case CategoryScript:
		return "js"
	case CategoryStylesheet:
		return "css"
	default:
		return "misc"
	}
}

// MarshalText implements encoding.TextMarshaler so reports carry the name.
func (c AssetCategory) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *AssetCategory) UnmarshalText(text []byte) error {
	for _, category := range AssetCategories {
		if category.String() == string(text) {
			*c = category
			return nil
		}
	}
	return fmt.Errorf("unknown asset category %q", string(text))
}

// Attribute is the tag attribute holding an asset URL.
// It is decided once, when the asset reference is discovered.
type Attribute int

const (
	// SourceAttribute is the "src" attribute. It wins when both are present.
	SourceAttribute Attribute = iota

	// HrefAttribute is the "href" attribute.
	HrefAttribute
)

// Name returns the HTML attribute name.
func (a Attribute) Name() string {
	if a == HrefAttribute {
		return "href"
	}
	return "src"
}

// MarshalText implements encoding.TextMarshaler.
func (a Attribute) MarshalText() ([]byte, error) {
	return []byte(a.Name()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Attribute) UnmarshalText(text []byte) error {
	switch string(text) {
	case "src":
		*a = SourceAttribute
	case "href":
		*a = HrefAttribute
	default:
		return fmt.Errorf("unknown attribute %q", string(text))
	}
	return nil
}

// AssetOutcome records what happened to a single asset reference.
type AssetOutcome struct {
	// Category is the asset kind.
	Category AssetCategory `json:"category"`

	// Attribute is the attribute the URL was read from.
	Attribute Attribute `json:"attribute"`

	// Original is the raw attribute value found in the document.
	Original string `json:"original"`

	// FetchURL is the absolute URL the asset was requested from.
	FetchURL string `json:"fetch_url,omitempty"`

	// LocalPath is where the asset was written on disk.
	LocalPath string `json:"local_path,omitempty"`

	// Rewritten is the new attribute value. Empty unless the asset was saved.
	Rewritten string `json:"rewritten,omitempty"`

	// Skipped is true for references that are intentionally left alone (inline data URIs).
	Skipped bool `json:"skipped,omitempty"`

	// Error is the truncated failure message. Empty on success.
	Error string `json:"error,omitempty"`

	// Dir is the directory the asset was destined for; used in failure messages.
	Dir string `json:"dir"`
}

// Saved reports whether the asset was downloaded and its tag rewritten.
func (o AssetOutcome) Saved() bool {
	return o.Error == "" && !o.Skipped && o.Rewritten != ""
}

// Failed reports whether downloading or saving the asset failed.
func (o AssetOutcome) Failed() bool {
	return o.Error != ""
}
