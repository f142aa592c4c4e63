package session

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisStore(t *testing.T) {
	url := os.Getenv("PAGESTRIP_TEST_REDIS")
	if url == "" {
		t.Skip("PAGESTRIP_TEST_REDIS not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}
	store := NewRedisStoreFromClient(redis.NewClient(opts), "pagestrip-test:"+uuid.NewString()+":")
	defer store.Close()
	runStoreTests(t, store)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("PAGESTRIP_TEST_MONGO")
	if uri == "" {
		t.Skip("PAGESTRIP_TEST_MONGO not set")
	}
	ctx := context.Background()
	store, err := NewMongoStore(ctx, uri, "pagestrip_test", "sessions_"+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("NewMongoStore: %v", err)
	}
	defer func() {
		_ = store.coll.Drop(ctx)
		store.Close()
	}()
	runStoreTests(t, store)
}
