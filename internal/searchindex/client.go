// Package searchindex is a pooled HTTP client for a Solr-like document
// index, with response memoization so repeated rights lookups for the same
// document during a short window don't re-hit the network.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/impresso-project/content-authz/cache"
	"github.com/impresso-project/content-authz/client"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultCacheTTL      = 3600 * time.Second
	defaultCacheCapacity = 10000
	defaultCacheSweep    = time.Minute
	defaultSearchRows    = 10
)

// Config describes how to reach and authenticate against the index.
type Config struct {
	BaseURL        string
	Username       string
	Password       string
	ProxyURL       string
	MaxConnections int
	MaxKeepalive   int
	Timeout        time.Duration

	// Cache backs response memoization. When nil, New falls back to a
	// process-local, size-bounded in-memory cache; passing a Redis-backed
	// cache.RawCache shares memoized responses across replicas.
	Cache cache.RawCache
}

// Client is a pooled, caching HTTP client for a Solr-style search index.
type Client struct {
	httpClient *http.Client
	baseURL    string
	username   string
	password   string
	cache      cache.RawCache
}

// New builds a Client from Config. Basic auth is attached automatically
// when a username is set; the proxy is used when ProxyURL is set.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []client.HTTPOption{
		client.WithHTTPTimeout(orDefault(cfg.Timeout, defaultTimeout)),
		client.WithHTTPMaxConnections(cfg.MaxConnections, cfg.MaxKeepalive),
	}

	if cfg.Username != "" {
		opts = append(opts, client.WithHTTPBasicAuth(cfg.Username, cfg.Password))
	}

	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("parsing solr proxy url: %w", err)
		}
		opts = append(opts, client.WithHTTPProxy(proxy))
	}

	responseCache := cfg.Cache
	if responseCache == nil {
		responseCache = cache.NewInMemoryCacheWithLimits(defaultCacheCapacity, defaultCacheSweep)
	}

	return &Client{
		httpClient: client.NewHTTPClient(ctx, opts...),
		baseURL:    cfg.BaseURL,
		username:   cfg.Username,
		password:   cfg.Password,
		cache:      responseCache,
	}, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// AuthenticationDetails renders the configured credentials for introspection
// without ever exposing the password.
func (c *Client) AuthenticationDetails() string {
	if c.username == "" {
		return ""
	}
	if c.password == "" {
		return fmt.Sprintf("Basic Auth: %s:None", c.username)
	}
	return fmt.Sprintf("Basic Auth: %s:[REDACTED]", c.username)
}

// Close releases the response cache's background resources.
func (c *Client) Close() error {
	return c.cache.Close()
}

// PostQuery issues a POST of body to {baseURL}/{collection}/{handler},
// returning the decoded JSON response. Identical (url, body) pairs within
// the cache TTL are served from memory without a network round trip.
func (c *Client) PostQuery(ctx context.Context, collection string, body map[string]any, handler string) (map[string]any, error) {
	if handler == "" {
		handler = "select"
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, collection, handler)

	cacheKey, err := memoKey(endpoint, body)
	if err != nil {
		return nil, err
	}

	if cached, hit, cacheErr := c.cache.Get(ctx, cacheKey); cacheErr == nil && hit {
		var result map[string]any
		if unmarshalErr := json.Unmarshal(cached, &result); unmarshalErr == nil {
			return result, nil
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("search index request failed: %s", resp.Status)
	}

	var result map[string]any
	if decodeErr := json.NewDecoder(resp.Body).Decode(&result); decodeErr != nil {
		return nil, decodeErr
	}

	if encoded, marshalErr := json.Marshal(result); marshalErr == nil {
		_ = c.cache.Set(ctx, cacheKey, encoded, defaultCacheTTL)
	}

	return result, nil
}

// SearchParams configures Search; zero values take the documented defaults.
type SearchParams struct {
	Collection string
	Query      string
	Filter     []string
	Fields     []string
	Rows       int
	Start      int
	Sort       string
}

// Search issues a query against collection, shaping the request body as
// {query, limit, offset, params:{fq, fl, sort}}.
func (c *Client) Search(ctx context.Context, p SearchParams) (map[string]any, error) {
	rows := p.Rows
	if rows == 0 {
		rows = defaultSearchRows
	}
	query := p.Query
	if query == "" {
		query = "*:*"
	}

	body := map[string]any{
		"query":  query,
		"limit":  rows,
		"offset": p.Start,
	}

	params := map[string]any{}
	if len(p.Filter) > 0 {
		params["fq"] = p.Filter
	}
	if len(p.Fields) > 0 {
		fl := ""
		for i, f := range p.Fields {
			if i > 0 {
				fl += ","
			}
			fl += f
		}
		params["fl"] = fl
	}
	if p.Sort != "" {
		params["sort"] = p.Sort
	}
	if len(params) > 0 {
		body["params"] = params
	}

	return c.PostQuery(ctx, p.Collection, body, "select")
}

// memoKey builds the cache key: URL + canonical JSON of body, with object
// keys sorted so semantically identical bodies always hash the same.
func memoKey(endpoint string, body map[string]any) (string, error) {
	canonical, err := canonicalJSON(body)
	if err != nil {
		return "", err
	}
	return endpoint + ":" + canonical, nil
}

func canonicalJSON(v map[string]any) (string, error) {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make([]byte, 0, 128)
	ordered = append(ordered, '{')
	for i, k := range keys {
		if i > 0 {
			ordered = append(ordered, ',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		ordered = append(ordered, keyJSON...)
		ordered = append(ordered, ':')

		valJSON, err := json.Marshal(v[k])
		if err != nil {
			return "", err
		}
		ordered = append(ordered, valJSON...)
	}
	ordered = append(ordered, '}')
	return string(ordered), nil
}
