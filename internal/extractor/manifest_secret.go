package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ManifestWithSecret resolves x-original-uri against basePath, looks for a
// sibling "{stem}_manifest.json" file, and returns its "secret" field. Any
// I/O or parse failure yields no token rather than an error: a missing or
// malformed manifest is an ordinary "not configured for this resource"
// outcome, not a dependency failure.
func ManifestWithSecret(basePath string) Extractor {
	return func(_ context.Context, r *http.Request) (any, error) {
		uriPath := r.Header.Get("x-original-uri")
		if uriPath == "" {
			return nil, nil
		}

		resourcePath, ok := uriToPath(basePath, uriPath)
		if !ok {
			return nil, nil
		}
		manifestPath := manifestPathFor(resourcePath)

		data, err := os.ReadFile(manifestPath)
		if err != nil {
			return nil, nil
		}

		var manifest map[string]any
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, nil
		}

		secret, ok := manifest["secret"].(string)
		if !ok {
			return nil, nil
		}
		return secret, nil
	}
}

// uriToPath resolves uriPath against basePath and reports whether the
// result stays confined to basePath. A path containing ".." segments that
// would escape basePath is rejected rather than silently clamped.
func uriToPath(basePath, uriPath string) (string, bool) {
	if idx := strings.IndexAny(uriPath, "?#"); idx >= 0 {
		uriPath = uriPath[:idx]
	}
	uriPath = strings.TrimPrefix(uriPath, "/")

	base, err := filepath.Abs(basePath)
	if err != nil {
		return "", false
	}
	resolved := filepath.Join(base, uriPath)
	if resolved != base && !strings.HasPrefix(resolved, base+string(filepath.Separator)) {
		return "", false
	}
	return resolved, true
}

func manifestPathFor(resourcePath string) string {
	dir := filepath.Dir(resourcePath)
	base := filepath.Base(resourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_manifest.json")
}
