package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure kinds a mirror run can report.
// Timeouts, HTTP status errors and unreachable hosts all collapse into KindFetch.
type ErrorKind int

const (
	// KindFetch means a network request did not produce a usable body.
	KindFetch ErrorKind = iota + 1

	// KindParse means fetched bytes could not be parsed as HTML.
	KindParse

	// KindIO means reading or writing the local filesystem failed.
	KindIO
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindFetch:
		return "fetch failed"
	case KindParse:
		return "parse failed"
	case KindIO:
		return "io failed"
	default:
		return "unknown failure"
	}
}

// Error is a failure tagged with its kind.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Op names the operation that failed, e.g. "GET https://example.com".
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewFetchError wraps err as a KindFetch failure.
func NewFetchError(op string, err error) *Error {
	return &Error{Kind: KindFetch, Op: op, Err: err}
}

// NewParseError wraps err as a KindParse failure.
func NewParseError(op string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Err: err}
}

// NewIOError wraps err as a KindIO failure.
func NewIOError(op string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or 0 if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
