// Package report renders page results for the terminal and for tools.
//
// Three formats are available:
//   - SimpleWriter: the line-oriented progress output printed by default
//   - JSONWriter: one JSON document per page
//   - MarkdownWriter: a Markdown section per page, with asset tables and a chart
//
// Writers read model.MirrorReport values and never modify them.
package report
