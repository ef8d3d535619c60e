package matcher

import (
	"context"
	"net/http"

	"github.com/impresso-project/content-authz/internal/bitmask"
)

// BitwiseAnd allows when the client mask and resource mask share at least
// one set bit. Tokens of the wrong type, or either token missing, deny
// rather than error.
func BitwiseAnd() Matcher {
	return func(_ context.Context, _ *http.Request, client, resource any) (bool, error) {
		clientMask, ok := client.(bitmask.BitMask64)
		if !ok {
			return false, nil
		}
		resourceMask, ok := resource.(bitmask.BitMask64)
		if !ok {
			return false, nil
		}
		return bitmask.IsAccessAllowed(clientMask, resourceMask), nil
	}
}
