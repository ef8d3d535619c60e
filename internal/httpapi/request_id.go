package httpapi

import (
	"context"
	"net/http"

	"github.com/rs/xid"
)

const headerRequestID = "X-Request-Id"

type requestIDKey struct{}

// withRequestID stamps every inbound request with an xid, reusing one the
// proxy already set so a single subrequest chain correlates across hops.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" || !validXID(id) {
			id = xid.New().String()
		}
		w.Header().Set(headerRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validXID(id string) bool {
	_, err := xid.FromString(id)
	return err == nil
}

// RequestID returns the request id stamped onto ctx by withRequestID, or ""
// if none is present.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
