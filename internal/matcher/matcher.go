// Package matcher implements the strategies that reduce two extracted
// tokens (or, for the quota matcher, the request itself) to an allow/deny
// boolean.
package matcher

import (
	"context"
	"net/http"
)

// Matcher decides access given the request and the two tokens the pipeline
// extracted for it. Most matchers ignore the request and client/resource
// are all they need; the quota matcher ignores the tokens and works off
// the request alone.
type Matcher func(ctx context.Context, r *http.Request, client, resource any) (bool, error)

// Registry is a named lookup table of matchers, built once at startup.
type Registry map[string]Matcher

func (reg Registry) Get(name string) (Matcher, bool) {
	m, ok := reg[name]
	return m, ok
}
