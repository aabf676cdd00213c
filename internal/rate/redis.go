package rate

import (
	"time"

	"github.com/go-redis/redis"

	"github.com/insightsphere/insightsphere/internal/log"
)

// RedisLimiter keeps fixed-window counters in redis so several server
// processes share one budget per key.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisLimiter) Allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	key = r.prefix + key
	n, err := r.client.Incr(key).Result()
	if err != nil {
		// Fail open when redis is unreachable.
		log.Warn.Printf("rate limiter: incr %s: %v", key, err)
		return true, 0
	}
	if n == 1 {
		if err := r.client.Expire(key, window).Err(); err != nil {
			log.Warn.Printf("rate limiter: expire %s: %v", key, err)
		}
	}

	ttl, err := r.client.TTL(key).Result()
	if err != nil || ttl < 0 {
		ttl = window
		if err == nil {
			// Counter lost its expiry.
			_ = r.client.Expire(key, window).Err()
		}
	}
	if n > int64(limit) {
		return false, ttl
	}
	return true, ttl
}
