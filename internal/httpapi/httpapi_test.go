package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/impresso-project/content-authz/internal/extractor"
	"github.com/impresso-project/content-authz/internal/matcher"
	"github.com/impresso-project/content-authz/internal/pipeline"
)

func constExtractor(v any) extractor.Extractor {
	return func(context.Context, *http.Request) (any, error) { return v, nil }
}

func newTestMux() http.Handler {
	p := pipeline.New(
		extractor.Registry{
			"client":   constExtractor("secret"),
			"resource": constExtractor("secret"),
			"mismatch": constExtractor("other"),
		},
		matcher.Registry{
			"equality": matcher.Equality(),
			"quota":    matcher.Null(),
		},
	)
	return NewServeMux(p)
}

func TestHealthReturnsOK(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDecisionRouteAllows(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/equality/client/resource", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDecisionRouteDenies(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/equality/client/mismatch", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDecisionRouteWithQuotaCheckDeniesWithRedirectHeader(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/equality/client/resource/with-quota-check", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "https://http.cat/429", rec.Header().Get(headerRedirectURL))
}

func TestDecisionRouteMissingRegistryEntryDenies(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/equality/client/unknown-extractor", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
