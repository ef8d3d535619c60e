package quota

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultQuotaLimit    = 200000
	defaultWindowSeconds = 30 * 24 * 60 * 60
	bloomBits            = 1 << 20
)

// quotaScript is the single atomic mutation point for per-user quota state.
// KEYS: 1=bloom bitmap, 2=visit count, 3=window start epoch.
// ARGV: 1=docId, 2=quotaLimit, 3=now (epoch seconds), 4=windowSeconds, 5=bloomBits.
//
// The "probabilistic set" is a plain SETBIT/GETBIT bitmap indexed by the
// first 32 bits of sha1(docId) mod bloomBits, rather than a RedisBloom
// module, so it runs against any stock Redis.
const quotaScript = `
local bloomKey = KEYS[1]
local countKey = KEYS[2]
local firstAccessKey = KEYS[3]

local docId = ARGV[1]
local quotaLimit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local windowSeconds = tonumber(ARGV[4])
local bloomBits = tonumber(ARGV[5])

local firstAccess = redis.call('GET', firstAccessKey)
if (not firstAccess) or (now - tonumber(firstAccess) >= windowSeconds) then
	redis.call('DEL', bloomKey)
	redis.call('DEL', countKey)
	redis.call('SET', firstAccessKey, now)
	redis.call('EXPIRE', firstAccessKey, windowSeconds)
end

local hash = redis.sha1hex(docId)
local bit = tonumber(string.sub(hash, 1, 8), 16) % bloomBits

if redis.call('GETBIT', bloomKey, bit) == 1 then
	return 1
end

redis.call('SETBIT', bloomKey, bit, 1)
redis.call('EXPIRE', bloomKey, windowSeconds)

local count = tonumber(redis.call('GET', countKey) or '0')
if count < quotaLimit then
	redis.call('INCR', countKey)
	redis.call('EXPIRE', countKey, windowSeconds)
	return 1
end

return 0
`

// Redis tracks per-user document quota atomically via quotaScript, so no
// read-modify-write ever happens client-side.
type Redis struct {
	client        *redis.Client
	quotaLimit    int
	windowSeconds int
	script        *redis.Script
}

type Option func(*Redis)

func WithQuotaLimit(limit int) Option {
	return func(r *Redis) {
		if limit > 0 {
			r.quotaLimit = limit
		}
	}
}

func WithWindow(window time.Duration) Option {
	return func(r *Redis) {
		if window > 0 {
			r.windowSeconds = int(window.Seconds())
		}
	}
}

func NewRedis(client *redis.Client, opts ...Option) *Redis {
	r := &Redis{
		client:        client,
		quotaLimit:    defaultQuotaLimit,
		windowSeconds: defaultWindowSeconds,
		script:        redis.NewScript(quotaScript),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Redis) Check(ctx context.Context, userID, docID string) (bool, error) {
	keys := []string{
		"user:" + userID + ":bloom",
		"user:" + userID + ":count",
		"user:" + userID + ":first_access",
	}
	result, err := r.script.Run(ctx, r.client, keys,
		docID, r.quotaLimit, time.Now().Unix(), r.windowSeconds, bloomBits,
	).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
