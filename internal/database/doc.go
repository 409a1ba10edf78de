// Package database stores the run history of pagemirror in SQLite.
//
// Every processed page, successful or not, becomes one row of the
// mirror_runs table together with its full JSON report. The history
// command reads it back to list mirrored sites and their past runs.
//
// The database lives in a single file under the XDG data directory
// ($XDG_DATA_HOME/pagemirror/pagemirror.db) and is opened through
// modernc.org/sqlite, so no cgo toolchain is needed.
package database
