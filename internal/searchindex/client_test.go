package searchindex_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impresso-project/content-authz/internal/searchindex"
)

func TestSearchCachesIdenticalQueries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":{"docs":[{"id":"doc-1","rights_bm_get_img_l":"AQ=="}]}}`))
	}))
	defer server.Close()

	c, err := searchindex.New(context.Background(), searchindex.Config{BaseURL: server.URL})
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		result, searchErr := c.Search(context.Background(), searchindex.SearchParams{
			Collection: "items",
			Query:      "id:doc-1",
			Fields:     []string{"rights_bm_get_img_l"},
			Rows:       1,
		})
		require.NoError(t, searchErr)
		require.NotNil(t, result)
	}

	assert.EqualValues(t, 1, hits.Load())
}

func TestSearchPropagatesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c, err := searchindex.New(context.Background(), searchindex.Config{BaseURL: server.URL})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Search(context.Background(), searchindex.SearchParams{Collection: "items", Query: "id:doc-1"})
	assert.Error(t, err)
}

func TestAuthenticationDetailsRedacted(t *testing.T) {
	c, err := searchindex.New(context.Background(), searchindex.Config{
		BaseURL:  "https://example.org",
		Username: "svc",
		Password: "secret",
	})
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "Basic Auth: svc:[REDACTED]", c.AuthenticationDetails())
}
