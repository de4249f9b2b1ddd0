package engine

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/models"
)

func testSnapshot(collectionID string, size int) *models.DashboardSnapshot {
	positions := make([]models.EnrichedPosition, size)
	for i := range positions {
		positions[i] = models.Enrich(models.Position{Symbol: "SYM", Quantity: 1, UnitCost: 10}, 12, true, false)
	}
	return &models.DashboardSnapshot{CollectionID: collectionID, Positions: positions}
}

func TestSnapshotCache_PutGet(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSnapshotCache(ctx, newMemKV(), time.Hour, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewSnapshotCache failed: %v", err)
	}

	if err := cache.Put(ctx, testSnapshot("smsf", 3)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	snap, ok := cache.Get("smsf", 3)
	if !ok {
		t.Fatal("expected snapshot hit")
	}
	if snap.ExpectedSize != 3 {
		t.Errorf("expected ExpectedSize 3, got %d", snap.ExpectedSize)
	}
	if snap.CapturedAt.IsZero() {
		t.Error("expected CapturedAt to be stamped")
	}
}

func TestSnapshotCache_SizeMismatchRejected(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSnapshotCache(ctx, newMemKV(), time.Hour, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewSnapshotCache failed: %v", err)
	}

	if err := cache.Put(ctx, testSnapshot("smsf", 3)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// A position was added elsewhere: the snapshot is stale.
	if _, ok := cache.Get("smsf", 4); ok {
		t.Error("expected size-mismatched snapshot to be rejected")
	}
}

func TestSnapshotCache_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSnapshotCache(ctx, newMemKV(), 30*time.Millisecond, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewSnapshotCache failed: %v", err)
	}

	if err := cache.Put(ctx, testSnapshot("smsf", 2)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, ok := cache.Get("smsf", 2); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := cache.Get("smsf", 2); ok {
		t.Error("expected miss after TTL expiry")
	}
}

func TestSnapshotCache_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	logger := common.NewSilentLogger()

	first, err := NewSnapshotCache(ctx, kv, time.Hour, logger)
	if err != nil {
		t.Fatalf("NewSnapshotCache failed: %v", err)
	}
	if err := first.Put(ctx, testSnapshot("smsf", 2)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	second, err := NewSnapshotCache(ctx, kv, time.Hour, logger)
	if err != nil {
		t.Fatalf("NewSnapshotCache reload failed: %v", err)
	}
	if _, ok := second.Get("smsf", 2); !ok {
		t.Error("expected snapshot to survive a reload from the durable store")
	}
}

func TestSnapshotCache_Remove(t *testing.T) {
	ctx := context.Background()
	cache, err := NewSnapshotCache(ctx, newMemKV(), time.Hour, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewSnapshotCache failed: %v", err)
	}

	if err := cache.Put(ctx, testSnapshot("smsf", 2)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := cache.Remove(ctx, "smsf"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := cache.Get("smsf", 2); ok {
		t.Error("expected miss after removal")
	}
}
