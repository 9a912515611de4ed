package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
)

const anonMarker = "anon"

// Cache keeps short-lived probe results keyed by a hash of the Cookie header,
// so busy navigation does not probe the core API on every request. A nil
// redis client disables caching and every lookup is a miss.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{redis: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, cookies string) (*model.Identity, bool) {
	if c == nil || c.redis == nil || cookies == "" {
		return nil, false
	}
	value, err := c.redis.Get(ctx, cacheKey(cookies)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("session cache get error: %v", err)
		return nil, false
	}
	if value == anonMarker {
		return nil, true
	}
	var identity model.Identity
	if err := json.Unmarshal([]byte(value), &identity); err != nil {
		return nil, false
	}
	return &identity, true
}

func (c *Cache) Set(ctx context.Context, cookies string, identity *model.Identity) {
	if c == nil || c.redis == nil || cookies == "" {
		return
	}
	value := anonMarker
	if identity != nil {
		data, err := json.Marshal(identity)
		if err != nil {
			return
		}
		value = string(data)
	}
	if err := c.redis.Set(ctx, cacheKey(cookies), value, c.ttl).Err(); err != nil {
		log.Printf("session cache set error: %v", err)
	}
}

func (c *Cache) Drop(ctx context.Context, cookies string) {
	if c == nil || c.redis == nil || cookies == "" {
		return
	}
	if err := c.redis.Del(ctx, cacheKey(cookies)).Err(); err != nil {
		log.Printf("session cache drop error: %v", err)
	}
}

func cacheKey(cookies string) string {
	sum := sha256.Sum256([]byte(cookies))
	return "sess:" + hex.EncodeToString(sum[:])
}
