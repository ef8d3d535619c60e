// Package wiring builds the extractor and matcher registries the pipeline
// runs against, from a loaded Configuration. A feature whose prerequisites
// are absent gets the null variant under its usual name, so a route never
// fails to resolve — it just defaults to deny.
package wiring

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/impresso-project/content-authz/cache"
	rediscache "github.com/impresso-project/content-authz/cache/redis"
	"github.com/impresso-project/content-authz/config"
	"github.com/impresso-project/content-authz/internal/extractor"
	"github.com/impresso-project/content-authz/internal/matcher"
	"github.com/impresso-project/content-authz/internal/quota"
	"github.com/impresso-project/content-authz/internal/searchindex"
	"github.com/impresso-project/content-authz/internal/uriutil"
)

const (
	fieldContentItemImage   = "rights_bm_get_img_l"
	fieldContentItemExplore = "rights_bm_explore_l"
	manifestMetadataField   = "explore_bitmaps"
	manifestFileName        = "manifest.json"
	manifestTimeout         = 10 * time.Second
)

// Built holds everything wiring constructed that needs a controlled
// shutdown.
type Built struct {
	Extractors extractor.Registry
	Matchers   matcher.Registry
	Closers    []func() error
}

// Build constructs the extractor and matcher registries from cfg. It
// crashes loudly (returns an error) when a prerequisite is partially
// configured in a way that can't be resolved to either "enabled" or
// "disabled" — a Solr base URL without a content-item collection name —
// and when a configured dependency can't be set up: Redis unreachable or
// an unparsable Solr proxy URL.
func Build(ctx context.Context, cfg *config.Configuration) (*Built, error) {
	built := &Built{
		Extractors: extractor.Registry{},
		Matchers:   matcher.Registry{},
	}

	cacheManager := cache.NewManager()
	built.Closers = append(built.Closers, cacheManager.Close)

	built.Extractors["bearer-token"] = extractor.Bearer()

	if cfg.StaticSecretEnabled() {
		built.Extractors["static-secret"] = extractor.StaticSecret(cfg.StaticSecret)
	} else {
		built.Extractors["static-secret"] = extractor.Null()
	}

	if cfg.ManifestWithSecretEnabled() {
		built.Extractors["manifest-with-secret"] = extractor.ManifestWithSecret(cfg.StaticFilesPath)
	} else {
		built.Extractors["manifest-with-secret"] = extractor.Null()
	}

	if cfg.CookieBitmapEnabled() {
		built.Extractors["cookie-bitmap"] = extractor.CookieBitmap(cfg.CookieName, cfg.JWTSecret, cfg.JWTBitmapClaim, cfg.JWTVerifyAudience)
		built.Extractors["cookie-user-id"] = extractor.CookieUserID(cfg.CookieName, cfg.JWTSecret, cfg.JWTVerifyAudience)
	} else {
		built.Extractors["cookie-bitmap"] = extractor.Null()
		built.Extractors["cookie-user-id"] = extractor.Null()
	}

	built.Extractors["iiif-presentation-manifest"] = extractor.IIIFPresentationManifest(
		extractURLFromXOriginalURI, manifestMetadataField, manifestFileName, manifestTimeout,
	)

	if cfg.Solr.Configured() {
		if cfg.Solr.ContentItemCollection == "" {
			return nil, fmt.Errorf("solr.base_url is set but solr.content_item_collection is empty")
		}

		var responseCache cache.RawCache
		if cfg.Redis.Configured() {
			redisCache, err := rediscache.New(rediscache.Options{Addr: cfg.Redis.URL})
			if err != nil {
				return nil, fmt.Errorf("building search index response cache: %w", err)
			}
			cacheManager.AddCache("search-index", redisCache)
			responseCache = redisCache
		}

		idx, err := searchindex.New(ctx, searchindex.Config{
			BaseURL:  cfg.Solr.BaseURL,
			Username: cfg.Solr.Username,
			Password: cfg.Solr.Password,
			ProxyURL: cfg.Solr.ProxyURL,
			Cache:    responseCache,
		})
		if err != nil {
			return nil, fmt.Errorf("building search index client: %w", err)
		}
		if responseCache == nil {
			// idx owns its in-memory cache; a Redis cache is closed by cacheManager.
			built.Closers = append(built.Closers, idx.Close)
		}

		idExtractor := extractIDFromXOriginalURIWithIIIFAndWildcard
		built.Extractors["content-item-image-bitmap"] = extractor.SolrDocument(idx, cfg.Solr.ContentItemCollection, idExtractor, fieldContentItemImage, "id")
		built.Extractors["content-item-explore-bitmap"] = extractor.SolrDocument(idx, cfg.Solr.ContentItemCollection, idExtractor, fieldContentItemExplore, "id")
	} else {
		built.Extractors["content-item-image-bitmap"] = extractor.Null()
		built.Extractors["content-item-explore-bitmap"] = extractor.Null()
	}

	built.Matchers["equality"] = matcher.Equality()
	built.Matchers["bitwise-and"] = matcher.BitwiseAnd()

	quotaUserIDExtractor := cookieUserIDStringFunc(cfg)

	if cfg.Redis.Configured() {
		client, err := quota.Dial(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		checker := quota.NewRedis(client,
			quota.WithQuotaLimit(cfg.Redis.QuotaLimit),
			quota.WithWindow(time.Duration(cfg.Redis.WindowDays)*24*time.Hour),
		)
		built.Closers = append(built.Closers, checker.Close)
		built.Matchers["quota"] = matcher.Quota(checker, quotaUserIDExtractor, extractIDFromXOriginalURIWithIIIFAndWildcard)
	} else {
		built.Matchers["quota"] = matcher.Quota(quota.Null{}, quotaUserIDExtractor, extractIDFromXOriginalURIWithIIIFAndWildcard)
	}

	return built, nil
}

func extractURLFromXOriginalURI(r *http.Request) string {
	return uriutil.ExtractURLFromXOriginalURI(r)
}

func extractIDFromXOriginalURIWithIIIFAndWildcard(r *http.Request) string {
	return uriutil.ExtractIDFromXOriginalURIWithIIIFAndWildcardPageSuffix(r)
}

// cookieUserIDStringFunc adapts CookieUserID's Extractor shape into the
// plain string extractor the quota matcher's sub-extractors need. When
// cookie auth isn't configured it always yields "", which the quota
// matcher already treats as fail-open.
func cookieUserIDStringFunc(cfg *config.Configuration) func(*http.Request) string {
	if !cfg.CookieBitmapEnabled() {
		return func(*http.Request) string { return "" }
	}
	cookieExtractor := extractor.CookieUserID(cfg.CookieName, cfg.JWTSecret, cfg.JWTVerifyAudience)
	return func(r *http.Request) string {
		token, _ := cookieExtractor(context.Background(), r)
		userID, _ := token.(string)
		return userID
	}
}
