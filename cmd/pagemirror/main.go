// Package main provides the entry point for the pagemirror CLI.
//
// pagemirror saves web pages for offline viewing. Every page is written as
// <slug>.html next to a sources/<slug>/ directory holding its images,
// scripts and stylesheets, with the tags rewritten to point at the local
// copies.
//
// Usage:
//
//	pagemirror https://example.com https://example.com/blog
//	pagemirror --metadata https://example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
