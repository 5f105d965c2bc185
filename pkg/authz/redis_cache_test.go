package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func setupRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisCache(client, 5*time.Minute), mr
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c, _ := setupRedisCache(t)

	key := PermissionKey("u-1", Permission{Resource: "concepts", Action: "read"})
	if _, ok := c.Get(ctx, key); ok {
		t.Fatal("expected miss on empty cache")
	}

	c.Set(ctx, key, true)
	allowed, ok := c.Get(ctx, key)
	if !ok || !allowed {
		t.Errorf("expected cached true, got (%v, %v)", allowed, ok)
	}

	c.Set(ctx, key, false)
	allowed, ok = c.Get(ctx, key)
	if !ok || allowed {
		t.Errorf("expected cached false, got (%v, %v)", allowed, ok)
	}
}

func TestRedisCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := setupRedisCache(t)

	key := RouteKey("u-1", "/teacher/dashboard")
	c.Set(ctx, key, true)

	mr.FastForward(6 * time.Minute)

	if _, ok := c.Get(ctx, key); ok {
		t.Error("entry past TTL must never be served")
	}
}

func TestRedisCache_ClearUser(t *testing.T) {
	ctx := context.Background()
	c, _ := setupRedisCache(t)

	c.Set(ctx, PermissionKey("u-1", Permission{Resource: "concepts", Action: "read"}), true)
	c.Set(ctx, RouteKey("u-1", "/domains/abc"), false)
	c.Set(ctx, PermissionKey("u-2", Permission{Resource: "concepts", Action: "read"}), true)

	c.ClearUser(ctx, "u-1")

	if got := c.Len(ctx); got != 1 {
		t.Fatalf("expected 1 entry after ClearUser, got %d", got)
	}
	if _, ok := c.Get(ctx, PermissionKey("u-2", Permission{Resource: "concepts", Action: "read"})); !ok {
		t.Error("other users' entries must survive ClearUser")
	}
}

func TestRedisCache_Clear(t *testing.T) {
	ctx := context.Background()
	c, _ := setupRedisCache(t)

	c.Set(ctx, PermissionKey("u-1", Permission{Resource: "classes", Action: "read"}), true)
	c.Set(ctx, PermissionKey("u-2", Permission{Resource: "classes", Action: "update"}), true)

	c.Clear(ctx)
	if got := c.Len(ctx); got != 0 {
		t.Errorf("expected empty cache after Clear, got %d entries", got)
	}
}
