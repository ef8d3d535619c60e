package extractor

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/impresso-project/content-authz/client"
	"github.com/impresso-project/content-authz/internal/bitmask"
)

const defaultManifestTimeout = 10 * time.Second

type manifest struct {
	Items []struct {
		Metadata []struct {
			Label map[string][]string `json:"label"`
			Value map[string][]string `json:"value"`
		} `json:"metadata"`
	} `json:"items"`
}

// IIIFPresentationManifest derives the manifest URL sitting alongside the
// resource urlExtractor points at, fetches it, and returns the first
// metadata value whose label (in any language) matches metadataField as a
// BitMask64. A missing manifest (404) yields no token; any other transport
// or decode error propagates.
func IIIFPresentationManifest(urlExtractor func(*http.Request) string, metadataField, manifestPath string, timeout time.Duration) Extractor {
	if metadataField == "" {
		metadataField = "explore_bitmaps"
	}
	if manifestPath == "" {
		manifestPath = "manifest.json"
	}
	if timeout <= 0 {
		timeout = defaultManifestTimeout
	}

	mgr := client.NewManager(context.Background(), client.WithHTTPTimeout(timeout))

	return func(ctx context.Context, r *http.Request) (any, error) {
		fileURL := urlExtractor(r)
		if fileURL == "" {
			return nil, nil
		}

		manifestURL, err := manifestURLFor(fileURL, manifestPath)
		if err != nil {
			return nil, nil
		}

		resp, err := mgr.InvokeStream(ctx, http.MethodGet, manifestURL, nil, nil)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			_ = resp.Close()
			return nil, nil
		}
		if resp.StatusCode >= http.StatusBadRequest {
			status := resp.StatusCode
			_ = resp.Close()
			return nil, &manifestStatusError{status: http.StatusText(status)}
		}

		var m manifest
		if err := resp.Decode(ctx, &m); err != nil {
			return nil, err
		}

		value, ok := findMetadataValue(m, metadataField)
		if !ok {
			return nil, nil
		}

		mask, err := bitmask.FromBase64(value)
		if err != nil {
			return nil, nil
		}
		return mask, nil
	}
}

type manifestStatusError struct {
	status string
}

func (e *manifestStatusError) Error() string {
	return "iiif manifest request failed: " + e.status
}

func manifestURLFor(fileURL, manifestPath string) (string, error) {
	parsed, err := url.Parse(fileURL)
	if err != nil {
		return "", err
	}
	parsed.Path = path.Join(path.Dir(parsed.Path), manifestPath)
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}

func findMetadataValue(m manifest, field string) (string, bool) {
	if len(m.Items) == 0 {
		return "", false
	}

	for _, entry := range m.Items[0].Metadata {
		if !labelMatches(entry.Label, field) {
			continue
		}
		for _, values := range entry.Value {
			if len(values) > 0 && values[0] != "" {
				return values[0], true
			}
		}
	}
	return "", false
}

func labelMatches(label map[string][]string, field string) bool {
	for _, values := range label {
		for _, v := range values {
			if v == field {
				return true
			}
		}
	}
	return false
}
