package draft

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter caps generation requests per minute with an atomic Redis
// Lua script. GET → check → INCR as separate calls would race when two
// orchestrator runs share a bucket; the script does all three in one
// round trip.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int
	script    *redis.Script
}

const minuteLimitLuaScript = `
local key = KEYS[1]
local increment = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local current = tonumber(redis.call("GET", key) or "0")

if current + increment > limit then
    return {0, current}
end

local newVal = redis.call("INCRBY", key, increment)
if newVal == increment then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// NewRateLimiter creates a limiter on an existing Redis client.
func NewRateLimiter(redisClient *redis.Client, perMinute int) *RateLimiter {
	return &RateLimiter{
		redis:     redisClient,
		perMinute: perMinute,
		script:    redis.NewScript(minuteLimitLuaScript),
	}
}

// NewRateLimiterFromURL connects to Redis and verifies the connection
// before returning a limiter.
func NewRateLimiterFromURL(redisURL string, perMinute int) (*RateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	log.Printf("[draft] Rate limiter connected to Redis at %s", redisURL)

	return NewRateLimiter(client, perMinute), nil
}

// Allow atomically reserves n generation slots in the current minute
// bucket. When denied, waitTime says how long until the bucket rolls
// over. A nil limiter always allows.
func (r *RateLimiter) Allow(ctx context.Context, n int) (allowed bool, waitTime time.Duration, err error) {
	if r == nil {
		return true, 0, nil
	}

	now := time.Now()
	key := fmt.Sprintf("gen:ratelimit:min:%d", now.Unix()/60)

	result, err := r.script.Run(ctx, r.redis,
		[]string{key},
		n,
		r.perMinute,
		120, // 2 minute TTL so a straggling bucket self-cleans
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit check failed: %w", err)
	}

	if result[0].(int64) == 0 {
		return false, time.Duration(60-now.Second()) * time.Second, nil
	}
	return true, 0, nil
}

// Close closes the underlying Redis connection.
func (r *RateLimiter) Close() error {
	if r == nil {
		return nil
	}
	return r.redis.Close()
}
