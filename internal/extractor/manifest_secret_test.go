package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, secret string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(`{"secret":"`+secret+`"}`), 0o600))
}

func TestManifestWithSecretReturnsSecret(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "item_manifest.json", "s3cr3t")

	e := ManifestWithSecret(dir)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("x-original-uri", "/item.jpg")

	token, err := e(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", token)
}

func TestManifestWithSecretMissingManifestYieldsNil(t *testing.T) {
	dir := t.TempDir()

	e := ManifestWithSecret(dir)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("x-original-uri", "/item.jpg")

	token, err := e(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestManifestWithSecretRejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "item_manifest.json", "s3cr3t")

	e := ManifestWithSecret(dir)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("x-original-uri", "/../../../../etc/item.jpg")

	token, err := e(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, token)
}

func TestManifestWithSecretNoURIYieldsNil(t *testing.T) {
	e := ManifestWithSecret(t.TempDir())
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	token, err := e(context.Background(), r)
	require.NoError(t, err)
	assert.Nil(t, token)
}
