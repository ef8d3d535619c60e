package matcher

import (
	"context"
	"net/http"
)

// Null always denies; used by the wiring layer for a disabled feature.
func Null() Matcher {
	return func(context.Context, *http.Request, any, any) (bool, error) {
		return false, nil
	}
}
