package rdx

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var Conn *redis.Client

func init() {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	Conn = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
}

func RdxSet(key, value string) error {
	return Conn.Set(context.Background(), key, value, 0).Err()
}

func RdxGet(key string) (string, error) {
	return Conn.Get(context.Background(), key).Result()
}

func RdxDel(key string) error {
	return Conn.Del(context.Background(), key).Err()
}

func RdxHset(hash, field, value string) error {
	return Conn.HSet(context.Background(), hash, field, value).Err()
}

func RdxHdel(hash, field string) (int64, error) {
	return Conn.HDel(context.Background(), hash, field).Result()
}

func SetWithExpiry(key, value string, ttl time.Duration) error {
	return Conn.Set(context.Background(), key, value, ttl).Err()
}

// --- Denormalized stock cache ---
//
// The browse UI reads these values for display only; the authoritative
// stockCount lives on the product document and is mutated exclusively
// inside order transactions. Stale reads here are acceptable.

const stockKeyPrefix = "stock:"

func CacheStockCount(ctx context.Context, productID string, stockCount int) {
	if err := Conn.Set(ctx, stockKeyPrefix+productID, stockCount, 0).Err(); err != nil {
		log.Printf("stock cache set failed for %s: %v", productID, err)
	}
}

func CachedStockCount(ctx context.Context, productID string) (int, bool) {
	val, err := Conn.Get(ctx, stockKeyPrefix+productID).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return n, true
}
