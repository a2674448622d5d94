// Package fetcher implements the low-level HTTP fetch used by the proxy
// client and the HTML extractor's read-more follow path.
package fetcher

import "errors"

// Sentinel errors returned by HTTPFetcher and the URL validator.
var (
	ErrInvalidURL       = errors.New("fetcher: invalid url")
	ErrPrivateIP        = errors.New("fetcher: url resolves to a private ip")
	ErrTooManyRedirects = errors.New("fetcher: too many redirects")
	ErrBodyTooLarge     = errors.New("fetcher: response body too large")
	ErrTimeout          = errors.New("fetcher: request timed out")
	RequestError        = errors.New("fetcher: request failed")
)
