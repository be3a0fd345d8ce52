//go:build integration

package jobs

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yourusername/cookie-auth/internal/auth"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("QUEUE_REDIS_URL")
	if url == "" {
		t.Skip("QUEUE_REDIS_URL is not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	rdb := redis.NewClient(opt)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewStore(rdb, time.Hour)
}

func TestStoreApplyConcurrentLogins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	userID := "it-" + uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Apply(ctx, userID, func(r *Record) {
				applyActivity(r, &TaskPayload{UserID: userID, Kind: auth.ActivityLogin, OccurredAt: time.Now()})
			})
			if err != nil {
				t.Errorf("Apply: %v", err)
			}
		}()
	}
	wg.Wait()

	record, err := store.Get(ctx, userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record == nil || record.LoginCount != 4 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.ExpiresAt.Before(record.UpdatedAt) {
		t.Fatalf("ExpiresAt should follow UpdatedAt: %+v", record)
	}

	missing, err := store.Get(ctx, "it-missing-"+uuid.NewString())
	if err != nil || missing != nil {
		t.Fatalf("expected (nil, nil) for missing record, got %+v, %v", missing, err)
	}
}
