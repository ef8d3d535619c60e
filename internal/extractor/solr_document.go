package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/impresso-project/content-authz/internal/bitmask"
	"github.com/impresso-project/content-authz/internal/searchindex"
)

// SearchIndex is the subset of the search-index client this extractor
// needs, so it can be mocked in tests without spinning up an HTTP server.
type SearchIndex interface {
	Search(ctx context.Context, p searchindex.SearchParams) (map[string]any, error)
}

// SolrDocument derives a document id via idExtractor, queries the index for
// that single document's field, and returns it as a BitMask64. Network or
// decoding failures propagate; a missing document or field yields no token.
func SolrDocument(idx SearchIndex, collection string, idExtractor func(*http.Request) string, field, idField string) Extractor {
	if idField == "" {
		idField = "id"
	}

	return func(ctx context.Context, r *http.Request) (any, error) {
		docID := idExtractor(r)
		if docID == "" {
			return nil, nil
		}

		result, err := idx.Search(ctx, searchindex.SearchParams{
			Collection: collection,
			Query:      fmt.Sprintf("%s:%s", idField, quoteLuceneTerm(docID)),
			Fields:     []string{field},
			Rows:       1,
		})
		if err != nil {
			return nil, err
		}

		value, ok := fieldFromResponse(result, field)
		if !ok {
			return nil, nil
		}

		mask, ok := maskFromFieldValue(value)
		if !ok {
			return nil, nil
		}
		return mask, nil
	}
}

// quoteLuceneTerm wraps a document id in a quoted Lucene phrase so that
// characters derived from an untrusted request path (Lucene operators,
// whitespace, parentheses) can't change the query's meaning.
func quoteLuceneTerm(term string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(term)
	return `"` + escaped + `"`
}

func fieldFromResponse(result map[string]any, field string) (any, bool) {
	response, ok := result["response"].(map[string]any)
	if !ok {
		return nil, false
	}
	docs, ok := response["docs"].([]any)
	if !ok || len(docs) == 0 {
		return nil, false
	}
	doc, ok := docs[0].(map[string]any)
	if !ok {
		return nil, false
	}
	value, present := doc[field]
	if !present {
		return nil, false
	}
	return value, true
}

// maskFromFieldValue converts a Solr field value into a BitMask64. Rights
// fields (e.g. rights_bm_get_img_l) are Solr long integers and decode from
// JSON as float64; base64-encoded string masks are also accepted for fields
// shaped that way.
func maskFromFieldValue(value any) (bitmask.BitMask64, bool) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, false
		}
		return bitmask.FromInt(uint64(v)), true
	case string:
		if v == "" {
			return 0, false
		}
		mask, err := bitmask.FromBase64(v)
		if err != nil {
			return 0, false
		}
		return mask, true
	default:
		return 0, false
	}
}
