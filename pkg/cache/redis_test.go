package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// redisURL returns the test server URL or skips the test.
func redisURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("PAGESTRIP_TEST_REDIS")
	if url == "" {
		t.Skip("PAGESTRIP_TEST_REDIS not set")
	}
	return url
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewRedisCache(ctx, redisURL(t), WithRedisPrefix("pagestrip-test:"+uuid.NewString()+":"))
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "aspect:x"); err != nil || hit {
		t.Fatalf("Get(missing) = hit %v, err %v; want miss", hit, err)
	}
	if err := c.Set(ctx, "aspect:x", []byte("0.75"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "aspect:x")
	if err != nil || !hit || string(data) != "0.75" {
		t.Fatalf("Get() = %q, %v, %v; want %q, true, nil", data, hit, err, "0.75")
	}
	if err := c.Delete(ctx, "aspect:x"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "aspect:x"); hit {
		t.Error("Get after Delete should miss")
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not a url"); err == nil {
		t.Error("NewRedisCache(bad url) should fail")
	}
}
