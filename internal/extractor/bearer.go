package extractor

import (
	"context"
	"net/http"
	"strings"
)

// Bearer reads the Authorization header, requiring exactly two
// whitespace-separated parts with the first case-insensitively "bearer".
func Bearer() Extractor {
	return func(_ context.Context, r *http.Request) (any, error) {
		header := r.Header.Get("Authorization")
		if header == "" {
			return nil, nil
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return nil, nil
		}

		return parts[1], nil
	}
}
