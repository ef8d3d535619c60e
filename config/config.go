// Package config loads the sidecar's configuration from a YAML file with an
// environment-variable overlay, following the same generic load/context
// helpers the wider stack uses for its services.
package config

import (
	"context"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type contextKey string

func (c contextKey) String() string {
	return "content-authz/config/" + string(c)
}

const ctxKeyConfiguration = contextKey("configurationKey")

// ToContext adds a loaded configuration to the supplied context.
func ToContext(ctx context.Context, cfg any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, cfg)
}

// FromContext extracts a configuration value of type T from the context.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv populates a T purely from environment variables and their
// `envDefault` tags.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv overlays environment variables onto an already-populated value,
// leaving fields untouched when their env var is unset.
func FillEnv(v any) error {
	return env.Parse(v)
}

// Solr carries the search-index client's connection and collection settings.
type Solr struct {
	BaseURL               string `env:"SOLR_BASE_URL"               yaml:"base_url"`
	Username              string `env:"SOLR_USERNAME"               yaml:"username"`
	Password              string `env:"SOLR_PASSWORD"               yaml:"password"`
	ProxyURL              string `env:"SOLR_PROXY_URL"              yaml:"proxy_url"`
	ContentItemCollection string `env:"SOLR_CONTENT_ITEM_COLLECTION" yaml:"content_item_collection"`
}

// Configured reports whether enough of Solr is set to build a real client.
func (s Solr) Configured() bool {
	return s.BaseURL != ""
}

// Redis carries the quota checker's backing store settings.
type Redis struct {
	URL        string `env:"REDIS_URL"        yaml:"url"`
	QuotaLimit int    `env:"REDIS_QUOTA_LIMIT" yaml:"quota_limit" envDefault:"200000"`
	WindowDays int    `env:"REDIS_WINDOW_DAYS" yaml:"window_days" envDefault:"30"`
}

// Configured reports whether a remote quota checker should be wired in.
func (r Redis) Configured() bool {
	return r.URL != ""
}

// Configuration is the sidecar's full recognized configuration surface, per
// the table of keys the pipeline's wiring layer consults at startup.
type Configuration struct {
	LogLevel string `env:"LOG_LEVEL" yaml:"log_level" envDefault:"info"`

	ServerPort string `env:"PORT" yaml:"server_port" envDefault:":8080"`

	StaticFilesPath string `env:"STATIC_FILES_PATH" yaml:"static_files_path"`
	StaticSecret    string `env:"STATIC_SECRET"     yaml:"static_secret"`

	CookieName        string `env:"COOKIE_NAME"          yaml:"cookie_name"          envDefault:"impresso_session"`
	JWTSecret         string `env:"JWT_SECRET"           yaml:"jwt_secret"`
	JWTVerifyAudience bool   `env:"JWT_VERIFY_AUDIENCE"  yaml:"jwt_verify_audience"  envDefault:"true"`
	JWTBitmapClaim    string `env:"JWT_BITMAP_CLAIM"     yaml:"jwt_bitmap_claim"     envDefault:"bitmap"`

	Solr  Solr  `yaml:"solr"`
	Redis Redis `yaml:"redis"`
}

// CookieBitmapEnabled reports whether enough is configured to build the
// cookie-based extractors (bitmap and user-id).
func (c *Configuration) CookieBitmapEnabled() bool {
	return c.JWTSecret != ""
}

// ManifestWithSecretEnabled reports whether the manifest-backed extractor
// has a base path to resolve manifests against.
func (c *Configuration) ManifestWithSecretEnabled() bool {
	return c.StaticFilesPath != ""
}

// StaticSecretEnabled reports whether the static-secret extractor is usable.
func (c *Configuration) StaticSecretEnabled() bool {
	return c.StaticSecret != ""
}

// Load reads the YAML file at path (if it exists) into a Configuration, then
// overlays any set environment variables, which always win. A missing path
// is not an error: the sidecar can run from environment variables alone.
func Load(path string) (*Configuration, error) {
	cfg := &Configuration{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if decodeErr := yaml.Unmarshal(data, cfg); decodeErr != nil {
				return nil, fmt.Errorf("decoding configuration file %q: %w", path, decodeErr)
			}
		case os.IsNotExist(err):
			// fall through to env-only configuration
		default:
			return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
		}
	}

	if err := FillEnv(cfg); err != nil {
		return nil, fmt.Errorf("overlaying environment configuration: %w", err)
	}

	return cfg, nil
}
