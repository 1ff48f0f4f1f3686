package lib

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient Replace redis instance with custom client implementation
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// CacheQuote stores a serialized quote under the key for the TTL. A nil
// client (redis not configured) degrades to a no-op.
func CacheQuote(ctx context.Context, key string, quote any, ttl time.Duration) {
	rdb := GetRedisClient()
	if rdb == nil {
		return
	}
	body, err := json.Marshal(quote)
	if err != nil {
		log.Printf("[redis] Error serializing quote: %s\n", err.Error())
		return
	}
	if err := rdb.Set(ctx, key, string(body), ttl).Err(); err != nil {
		log.Printf("[redis] Error caching quote %s: %s\n", key, err.Error())
	}
}

// GetCachedQuote reads a serialized quote into out. Returns false on miss or
// when redis is unavailable.
func GetCachedQuote(ctx context.Context, key string, out any) bool {
	rdb := GetRedisClient()
	if rdb == nil {
		return false
	}
	val, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false
	} else if err != nil {
		log.Printf("[redis] Error reading quote %s: %s\n", key, err.Error())
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		log.Printf("[redis] Error deserializing quote %s: %s\n", key, err.Error())
		return false
	}
	return true
}
