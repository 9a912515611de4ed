package session

import (
	"context"
	"testing"
	"time"

	"github.com/JulioVillegas21/medicalclinica1-sub001/internal/model"
)

// Without redis every lookup is a miss and writes are no-ops: the gateway
// must keep working, just probing upstream on every request.
func TestCacheDisabledWithoutRedis(t *testing.T) {
	cache := NewCache(nil, 30*time.Second)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "session=abc"); ok {
		t.Fatalf("nil-redis cache must always miss")
	}
	cache.Set(ctx, "session=abc", &model.Identity{ID: "p-1", Role: model.RolePatient})
	if _, ok := cache.Get(ctx, "session=abc"); ok {
		t.Fatalf("nil-redis cache must not retain entries")
	}
	cache.Drop(ctx, "session=abc")
}

func TestCacheKeyStableAndOpaque(t *testing.T) {
	a := cacheKey("session=abc")
	b := cacheKey("session=abc")
	c := cacheKey("session=xyz")
	if a != b {
		t.Fatalf("same cookies must hash to the same key")
	}
	if a == c {
		t.Fatalf("different cookies must not collide")
	}
	if len(a) <= len("sess:") {
		t.Fatalf("unexpected key %q", a)
	}
}
