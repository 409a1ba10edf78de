package crawler

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/pagemirror/internal/model"
)

// Asset selectors. Each matches exactly one category, so no element
// is ever localized twice.
const (
	imageSelector      = "img[src]"
	scriptSelector     = `script[src], link[as="script"]`
	stylesheetSelector = `link[rel="stylesheet"]`
	linkSelector       = "a[href]"
)

// errEmptyDocument is returned when a parsed tree has no nodes to render.
var errEmptyDocument = errors.New("document has no root node")

// Parse parses HTML into a mutable document.
// Malformed markup is repaired the way browsers do it; the only errors are read errors.
func Parse(r io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, model.NewParseError("parse HTML", err)
	}
	return doc, nil
}

// AssetRef is a single asset reference found in a document.
type AssetRef struct {
	// Selection is the element holding the reference. Rewriting its
	// attribute mutates the document in place.
	Selection *goquery.Selection

	// Attribute is where the URL was read from. src wins over href.
	Attribute model.Attribute

	// URL is the raw attribute value.
	URL string
}

// SetURL replaces the reference's attribute value.
func (a AssetRef) SetURL(value string) {
	a.Selection.SetAttr(a.Attribute.Name(), value)
}

// Assets holds the three asset categories of a page, each in document order.
type Assets struct {
	Images      []AssetRef
	Scripts     []AssetRef
	Stylesheets []AssetRef
}

// ByCategory returns the references of one category.
func (a Assets) ByCategory(c model.AssetCategory) []AssetRef {
	switch c {
	case model.CategoryImage:
		return a.Images
	case model.CategoryScript:
		return a.Scripts
	case model.CategoryStylesheet:
		return a.Stylesheets
	default:
		return nil
	}
}

// Len returns the total number of references.
func (a Assets) Len() int {
	return len(a.Images) + len(a.Scripts) + len(a.Stylesheets)
}

// Locate finds every image, script and stylesheet reference in doc.
func Locate(doc *goquery.Document) Assets {
	return Assets{
		Images:      collect(doc, imageSelector),
		Scripts:     collect(doc, scriptSelector),
		Stylesheets: collect(doc, stylesheetSelector),
	}
}

// collect returns references for every element matching selector.
// goquery returns a selector group's matches in document order.
func collect(doc *goquery.Document, selector string) []AssetRef {
	refs := make([]AssetRef, 0)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		attr := model.HrefAttribute
		if _, ok := s.Attr("src"); ok {
			attr = model.SourceAttribute
		}
		value, _ := s.Attr(attr.Name())
		refs = append(refs, AssetRef{
			Selection: s,
			Attribute: attr,
			URL:       strings.TrimSpace(value),
		})
	})
	return refs
}

// CountLinks returns the number of <a href> elements.
func CountLinks(doc *goquery.Document) int {
	return doc.Find(linkSelector).Length()
}

// CountImages returns the number of <img src> elements.
func CountImages(doc *goquery.Document) int {
	return doc.Find(imageSelector).Length()
}

// Render serializes the document, including any rewritten attributes.
func Render(doc *goquery.Document) ([]byte, error) {
	if len(doc.Nodes) == 0 {
		return nil, model.NewParseError("render HTML", errEmptyDocument)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc.Nodes[0]); err != nil {
		return nil, model.NewParseError("render HTML", err)
	}
	return buf.Bytes(), nil
}
