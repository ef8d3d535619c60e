package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
)

func TestWithRequestIDGeneratesWhenAbsent(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	id := rec.Header().Get(headerRequestID)
	assert.NotEmpty(t, id)
	_, err := xid.FromString(id)
	assert.NoError(t, err)
}

func TestWithRequestIDReusesValidIncoming(t *testing.T) {
	mux := newTestMux()
	existing := xid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, existing)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, existing, rec.Header().Get(headerRequestID))
}

func TestWithRequestIDReplacesInvalidIncoming(t *testing.T) {
	mux := newTestMux()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(headerRequestID, "not-an-xid")
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.NotEqual(t, "not-an-xid", rec.Header().Get(headerRequestID))
}
