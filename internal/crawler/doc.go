// Package crawler parses fetched pages and locates the assets they reference.
//
// A page is parsed once into a goquery document. Locate then selects three
// disjoint sets of elements:
//
//   - images: <img src>
//   - scripts: <script src> and <link as="script">
//   - stylesheets: <link rel="stylesheet">
//
// Each AssetRef keeps a handle to its element, so rewriting a reference
// mutates the document that Render later serializes.
//
// # Usage
//
//	doc, err := crawler.Parse(bytes.NewReader(body))
//	assets := crawler.Locate(doc)
//	for _, ref := range assets.Images {
//		ref.SetURL("local/copy.png")
//	}
//	out, err := crawler.Render(doc)
//
// The package only reads one page. It never follows links.
package crawler
