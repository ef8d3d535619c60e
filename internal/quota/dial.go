package quota

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectionTimeout = 5 * time.Second

// Dial connects to the Redis instance at addr (either a bare host:port or a
// redis:// URL) and verifies it's reachable before returning.
func Dial(addr string) (*redis.Client, error) {
	resolved := addr
	if parsed, err := url.Parse(addr); err == nil && parsed.Scheme == "redis" {
		resolved = parsed.Host
	}

	client := redis.NewClient(&redis.Options{Addr: resolved})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %q: %w", addr, err)
	}
	return client, nil
}
