package extractor

import (
	"context"
	"net/http"
)

// StaticSecret returns the same configured secret for every request,
// regardless of anything on the request itself.
func StaticSecret(secret string) Extractor {
	return func(context.Context, *http.Request) (any, error) {
		return secret, nil
	}
}
