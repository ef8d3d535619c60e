package matcher

import (
	"context"
	"crypto/subtle"
	"net/http"
	"reflect"
)

// Equality allows when the client and resource tokens are structurally
// equal. String tokens (the shared-secret extractors' natural shape) are
// compared in constant time so a client iterating guesses against this
// route can't use response timing to recover the secret byte by byte; any
// other token type falls back to structural equality.
func Equality() Matcher {
	return func(_ context.Context, _ *http.Request, client, resource any) (bool, error) {
		if client == nil || resource == nil {
			return false, nil
		}

		clientStr, clientIsStr := client.(string)
		resourceStr, resourceIsStr := resource.(string)
		if clientIsStr && resourceIsStr {
			return len(clientStr) == len(resourceStr) &&
				subtle.ConstantTimeCompare([]byte(clientStr), []byte(resourceStr)) == 1, nil
		}

		return reflect.DeepEqual(client, resource), nil
	}
}
