package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultHTTPTimeoutSeconds     = 30
	defaultHTTPIdleTimeoutSeconds = 90
)

// HTTPOption configures HTTP client behavior.
// It can be used to configure timeout, transport, and other HTTP client settings.
type HTTPOption func(*httpConfig)

// basicAuth holds credentials for HTTP basic authentication.
type basicAuth struct {
	username string
	password string
}

// httpConfig holds HTTP client configuration.
type httpConfig struct {
	timeout       time.Duration
	transport     http.RoundTripper
	jar           http.CookieJar
	checkRedirect func(req *http.Request, via []*http.Request) error
	idleTimeout   time.Duration
	enableH2C     bool

	maxConns         int
	maxIdleConns     int
	proxyURL         *url.URL
	auth             *basicAuth
	disableTelemetry bool
	retryPolicy      *RetryPolicy
}

const defaultMaxRetryAttempts = 1

// WithHTTPRetryPolicy sets the retry/circuit-breaker policy applied to every
// request issued by a Manager built from these options. Passing nil disables
// retries, leaving a single attempt per request.
func WithHTTPRetryPolicy(policy *RetryPolicy) HTTPOption {
	return func(c *httpConfig) {
		c.retryPolicy = policy
	}
}

// WithHTTPTimeout sets the request timeout.
func WithHTTPTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.timeout = timeout
	}
}

// WithHTTPTransport sets the HTTP transport.
func WithHTTPTransport(transport http.RoundTripper) HTTPOption {
	return func(c *httpConfig) {
		c.transport = transport
	}
}

// WithHTTPCookieJar sets the cookie jar.
func WithHTTPCookieJar(jar http.CookieJar) HTTPOption {
	return func(c *httpConfig) {
		c.jar = jar
	}
}

// WithHTTPCheckRedirect sets the redirect policy.
func WithHTTPCheckRedirect(checkRedirect func(req *http.Request, via []*http.Request) error) HTTPOption {
	return func(c *httpConfig) {
		c.checkRedirect = checkRedirect
	}
}

// WithHTTPIdleTimeout sets the idle timeout.
func WithHTTPIdleTimeout(timeout time.Duration) HTTPOption {
	return func(c *httpConfig) {
		c.idleTimeout = timeout
	}
}

// WithHTTPEnableH2C sets the enable h2c option to active.
func WithHTTPEnableH2C() HTTPOption {
	return func(c *httpConfig) {
		c.enableH2C = true
	}
}

// WithHTTPMaxConnections bounds the total and per-host idle connection pool.
func WithHTTPMaxConnections(maxConns, maxIdleConns int) HTTPOption {
	return func(c *httpConfig) {
		c.maxConns = maxConns
		c.maxIdleConns = maxIdleConns
	}
}

// WithHTTPProxy routes all requests through the given proxy URL.
func WithHTTPProxy(proxy *url.URL) HTTPOption {
	return func(c *httpConfig) {
		c.proxyURL = proxy
	}
}

// WithHTTPBasicAuth attaches basic-auth credentials applied on every request
// via the transport, so callers don't need to touch individual requests.
func WithHTTPBasicAuth(username, password string) HTTPOption {
	return func(c *httpConfig) {
		if username == "" && password == "" {
			return
		}
		c.auth = &basicAuth{username: username, password: password}
	}
}

// WithHTTPNoTelemetry skips the otelhttp instrumentation wrapper.
func WithHTTPNoTelemetry() HTTPOption {
	return func(c *httpConfig) {
		c.disableTelemetry = true
	}
}

// basicAuthTransport injects a fixed basic-auth header into every request.
type basicAuthTransport struct {
	base     http.RoundTripper
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(clone)
}

// NewHTTPClient creates a new HTTP client with the provided options.
// If no transport is specified, it defaults to otelhttp.NewTransport(http.DefaultTransport).
func NewHTTPClient(_ context.Context, opts ...HTTPOption) *http.Client {
	cfg := &httpConfig{
		timeout:     time.Duration(defaultHTTPTimeoutSeconds) * time.Second,
		idleTimeout: time.Duration(defaultHTTPIdleTimeoutSeconds) * time.Second,
		retryPolicy: DefaultRetryPolicy(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	var base http.RoundTripper = cfg.transport
	if base == nil {
		transport, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			transport = &http.Transport{}
		} else {
			transport = transport.Clone()
		}
		if cfg.maxConns > 0 {
			transport.MaxConnsPerHost = cfg.maxConns
		}
		if cfg.maxIdleConns > 0 {
			transport.MaxIdleConnsPerHost = cfg.maxIdleConns
		}
		if cfg.proxyURL != nil {
			proxy := cfg.proxyURL
			transport.Proxy = func(*http.Request) (*url.URL, error) { return proxy, nil }
		}
		if cfg.idleTimeout > 0 {
			transport.IdleConnTimeout = cfg.idleTimeout
		}
		base = transport
	}

	if cfg.enableH2C {
		if t, ok := base.(*http.Transport); ok {
			protocols := new(http.Protocols)
			protocols.SetUnencryptedHTTP2(true)
			t.Protocols = protocols
		}
	}

	if cfg.auth != nil {
		base = &basicAuthTransport{base: base, username: cfg.auth.username, password: cfg.auth.password}
	}

	if !cfg.disableTelemetry {
		if _, ok := base.(*otelhttp.Transport); !ok {
			base = otelhttp.NewTransport(base)
		}
	}

	if cfg.retryPolicy != nil {
		base = newResilientTransport(base, cfg.retryPolicy)
	}

	if t, ok := cfg.transport.(*http.Transport); ok && cfg.idleTimeout > 0 {
		t.IdleConnTimeout = cfg.idleTimeout
	}

	return &http.Client{
		Transport:     base,
		Timeout:       cfg.timeout,
		Jar:           cfg.jar,
		CheckRedirect: cfg.checkRedirect,
	}
}
