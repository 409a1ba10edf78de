// Package pipeline runs the per-page processing steps.
//
// A page goes through fetch, parse and then either save (mirror mode) or
// metadata (metadata mode). Each stage is a Step that reads and fills in the
// page's model.MirrorReport. The first failing step ends the page and its
// error is kept in the report; it is never returned past the BatchProcessor,
// so one broken page cannot stop the rest of a run.
//
// BatchProcessor drives the pages with errgroup. Its default concurrency of 1
// keeps the run sequential and in argument order.
package pipeline
