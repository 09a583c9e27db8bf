package cache

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"kasirdemo/backend/internal/domain"
)

var (
	_ SnapshotCache = NoopSnapshotCache{}
	_ SnapshotCache = (*RedisSnapshotCache)(nil)
)

func TestNoopCacheNeverHits(t *testing.T) {
	ctx := context.Background()
	c := NoopSnapshotCache{}
	if err := c.Set(ctx, CurrentSnapshotKey, &domain.Snapshot{RunID: "r"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, err := c.Get(ctx, CurrentSnapshotKey); ok || err != nil {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}
}

func TestRedisSnapshotCache(t *testing.T) {
	addr := os.Getenv("KASIRDEMO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set KASIRDEMO_TEST_REDIS_ADDR to run redis integration test")
	}

	ctx := context.Background()
	c := NewRedisSnapshotCache(addr, "", 0)
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := fmt.Sprintf("kasirdemo:test:%d", time.Now().UnixNano())
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("expected empty key, got ok=%v err=%v", ok, err)
	}

	snap := &domain.Snapshot{
		RunID: "run-1",
		Days:  180,
		State: domain.AppState{Orders: []domain.Order{{ID: "o1", TotalPaymentAmount: decimal.RequireFromString("12.50")}}},
	}
	if err := c.Set(ctx, key, snap, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.RunID != "run-1" || !got.State.Orders[0].TotalPaymentAmount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected cached snapshot: %+v", got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("expected miss after delete")
	}
}
