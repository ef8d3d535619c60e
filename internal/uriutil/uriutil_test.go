package uriutil_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/impresso-project/content-authz/internal/uriutil"
)

func newRequest(headers map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	return r
}

func TestExtractURLFromXOriginalURI(t *testing.T) {
	r := newRequest(map[string]string{
		"x-original-uri":    "/foo/bar.jpg",
		"x-forwarded-host":  "example.org",
		"x-forwarded-proto": "https",
	})
	assert.Equal(t, "https://example.org/foo/bar.jpg", uriutil.ExtractURLFromXOriginalURI(r))
}

func TestExtractURLFromXOriginalURIMissingHost(t *testing.T) {
	r := newRequest(map[string]string{"x-original-uri": "/foo/bar.jpg"})
	assert.Equal(t, "", uriutil.ExtractURLFromXOriginalURI(r))
}

func TestAudienceOmitsDefaultPort(t *testing.T) {
	r := newRequest(map[string]string{
		"x-forwarded-proto": "https",
		"x-forwarded-host":  "example.org",
		"x-forwarded-port":  "443",
	})
	assert.Equal(t, "https://example.org", uriutil.Audience(r))
}

func TestAudienceKeepsNonDefaultPort(t *testing.T) {
	r := newRequest(map[string]string{
		"x-forwarded-proto": "http",
		"x-forwarded-host":  "example.org",
		"x-forwarded-port":  "8080",
	})
	assert.Equal(t, "http://example.org:8080", uriutil.Audience(r))
}

func TestExtractIDFromXOriginalURIWithIIIF(t *testing.T) {
	r := newRequest(map[string]string{"x-original-uri": "/iiif/2/abc-p3/info.json"})
	assert.Equal(t, "iiif", uriutil.ExtractIDFromXOriginalURIWithIIIF(r))
}

func TestExtractIDFromXOriginalURIWithIIIFPrefixStrip(t *testing.T) {
	r := newRequest(map[string]string{
		"x-original-uri": "/public/iiif/abc-p3/info.json",
		"x-prefix-strip": "/private,/public",
	})
	assert.Equal(t, "iiif", uriutil.ExtractIDFromXOriginalURIWithIIIF(r))
}

func TestExtractIDFromXOriginalURIWithWildcardPageSuffix(t *testing.T) {
	r := newRequest(map[string]string{"x-original-uri": "/abc-p3/full/max/0/default.jpg"})
	assert.Equal(t, "abc-*", uriutil.ExtractIDFromXOriginalURIWithIIIFAndWildcardPageSuffix(r))
}

func TestExtractIDFromXOriginalURIWithWildcardPageSuffixNoSuffix(t *testing.T) {
	r := newRequest(map[string]string{"x-original-uri": "/abc/full/max/0/default.jpg"})
	assert.Equal(t, "abc", uriutil.ExtractIDFromXOriginalURIWithIIIFAndWildcardPageSuffix(r))
}

func TestExtractIDFromXOriginalURINonIIIF(t *testing.T) {
	r := newRequest(map[string]string{"x-original-uri": "/foo/bar/baz/img-1.jpg"})
	assert.Equal(t, "img-1", uriutil.ExtractIDFromXOriginalURI(r))
}

func TestExtractIDFromXOriginalURINonIIIFNoMatch(t *testing.T) {
	r := newRequest(map[string]string{"x-original-uri": "/foo/bar/baz/"})
	assert.Equal(t, "", uriutil.ExtractIDFromXOriginalURI(r))
}
