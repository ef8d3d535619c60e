// Package extractor implements the token-extraction strategies the
// decision pipeline runs against an incoming request: reading a bearer
// header, a signed cookie, a manifest file on disk, or a field off a
// document fetched from the search index.
//
// Every extractor has the same shape so the pipeline can run any two of
// them concurrently without knowing which it got.
package extractor

import (
	"context"
	"net/http"
)

// Extractor pulls a token out of a request. A nil token with a nil
// error means "no token found" (input absent or malformed) and the caller
// should deny. A non-nil error means a remote dependency failed and the
// caller should propagate a 5xx rather than silently deny.
type Extractor func(ctx context.Context, r *http.Request) (any, error)

// Null always returns no token; it stands in for a strategy the wiring
// layer disabled because its prerequisites are absent from configuration.
func Null() Extractor {
	return func(context.Context, *http.Request) (any, error) {
		return nil, nil
	}
}
