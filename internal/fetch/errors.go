package fetch

import "errors"

// Fetch failure causes. The Fetcher wraps them in a model.Error of kind
// model.KindFetch, so callers that only care about "this fetch failed" can
// ignore them and callers that care can use errors.Is.
var (
	// ErrUnexpectedStatus is returned when the terminal response is not 2xx.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrRedirectWithoutLocation is returned for a 301/302/307 response without a Location header.
	ErrRedirectWithoutLocation = errors.New("redirect response has no Location header")

	// ErrBodyTooLarge is returned when a response body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)
