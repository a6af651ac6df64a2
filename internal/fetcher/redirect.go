package fetcher

import (
	"errors"
	"net/http"
)

// ErrTooManyRedirects is returned once a fetch exceeds its redirect hop limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// RedirectPolicy returns an http.Client CheckRedirect that stops after
// maxHops redirects. A non-positive maxHops keeps the net/http default.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if maxHops > 0 && len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
