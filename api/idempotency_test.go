package api

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestDeduper(t *testing.T, ttl time.Duration) (*RedisDeduper, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisDeduper(client, ttl), mr
}

func TestDeduperAddOnce(t *testing.T) {
	d, _ := newTestDeduper(t, time.Hour)
	ctx := context.Background()

	added, err := d.Add(ctx, "u1", "k1")
	if err != nil || !added {
		t.Fatalf("first add: added=%v err=%v", added, err)
	}
	added, err = d.Add(ctx, "u1", "k1")
	if err != nil || added {
		t.Fatalf("second add: added=%v err=%v", added, err)
	}
}

func TestDeduperScopedPerUser(t *testing.T) {
	d, _ := newTestDeduper(t, time.Hour)
	ctx := context.Background()

	if added, _ := d.Add(ctx, "u1", "k1"); !added {
		t.Fatal("u1 add failed")
	}
	if added, _ := d.Add(ctx, "u2", "k1"); !added {
		t.Fatal("same key for other user should be new")
	}
}

func TestDeduperRemoveAllowsRetry(t *testing.T) {
	d, _ := newTestDeduper(t, time.Hour)
	ctx := context.Background()

	if added, _ := d.Add(ctx, "u1", "k1"); !added {
		t.Fatal("add failed")
	}
	if err := d.Remove(ctx, "u1", "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if added, _ := d.Add(ctx, "u1", "k1"); !added {
		t.Fatal("add after remove should succeed")
	}
}

func TestDeduperKeyExpires(t *testing.T) {
	d, mr := newTestDeduper(t, time.Minute)
	ctx := context.Background()

	if added, _ := d.Add(ctx, "u1", "k1"); !added {
		t.Fatal("add failed")
	}
	mr.FastForward(2 * time.Minute)
	if added, _ := d.Add(ctx, "u1", "k1"); !added {
		t.Fatal("expired key should be addable again")
	}
}
