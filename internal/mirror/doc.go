// Package mirror saves a page and its assets to disk.
//
// # Components
//
//   - Path mapping: ResolveFetchURL, SanitizePath and LocalizePath turn a raw
//     asset reference into a download URL and a local file path.
//   - Downloader: fetches one asset at a time, writes it and rewrites its tag.
//     A failed asset is recorded and skipped.
//   - Saver: replaces the page directory, runs the Downloader over every
//     category and writes the rewritten HTML.
//   - Reporter and FetchLog: the metadata mode, counting links and images and
//     keeping one UTC timestamp per fetch.
//
// # Output
//
//	sources/<slug>/images/<sanitized path>
//	sources/<slug>/js/<sanitized path>
//	sources/<slug>/css/<sanitized path>
//	<slug>.html
//	logs/<slug>.txt
//
// The page directory is deleted and recreated on every save, so nothing from
// a previous run survives.
package mirror
