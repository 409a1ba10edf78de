// Package model defines the data structures shared by the mirror pipeline.
//
// This package contains the following main types:
//   - Target: the page being mirrored and its derived slug
//   - MirrorReport: the result of processing one page
//   - MetadataReport: link/image counts and fetch history of a page
//   - AssetOutcome: what happened to a single asset reference
//   - Error: a failure tagged with an ErrorKind (fetch, parse, io)
//
// Models live in their own package so that fetch, crawler, mirror, pipeline,
// report and database can share them without import cycles.
package model
