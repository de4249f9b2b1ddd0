package engine

import (
	"context"
	"testing"
	"time"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/models"
)

func newTestEngine(t *testing.T, f *stubFeed) (*Engine, *CacheStore, *SnapshotCache) {
	t.Helper()
	orch, store := newTestOrchestrator(t, f, 4)
	snapshots, err := NewSnapshotCache(context.Background(), newMemKV(), time.Hour, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("NewSnapshotCache failed: %v", err)
	}
	e := New(store, snapshots, orch, time.Hour, common.NewSilentLogger())
	t.Cleanup(e.Close)
	return e, store, snapshots
}

func TestEngine_ColdLoadDeliversFreshSnapshot(t *testing.T) {
	f := newStubFeed()
	f.setQuote("VAS.AX", 96, false)

	e, _, _ := newTestEngine(t, f)

	positions := []models.Position{{Symbol: "VAS.AX", Quantity: 10, UnitCost: 80, AcquiredAt: day(2026, 1, 1)}}

	fresh := make(chan *models.DashboardSnapshot, 1)
	cached := e.LoadDashboard(context.Background(), "smsf", positions, false, func(snap *models.DashboardSnapshot, err error) {
		if err != nil {
			t.Errorf("refresh failed: %v", err)
		}
		fresh <- snap
	})
	if cached != nil {
		t.Error("cold start must return no cached snapshot")
	}

	select {
	case snap := <-fresh:
		if snap.CollectionID != "smsf" {
			t.Errorf("unexpected collection %s", snap.CollectionID)
		}
		if len(snap.Positions) != 1 || snap.Positions[0].CurrentPrice != 96 {
			t.Errorf("unexpected positions: %+v", snap.Positions)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fresh snapshot never delivered")
	}
}

func TestEngine_FreshSnapshotSuppressesRefresh(t *testing.T) {
	f := newStubFeed()
	f.setQuote("VAS.AX", 96, false)

	e, _, snapshots := newTestEngine(t, f)
	ctx := context.Background()

	positions := []models.Position{{Symbol: "VAS.AX", Quantity: 10, UnitCost: 80, AcquiredAt: day(2026, 1, 1)}}

	// First load populates the snapshot cache.
	fresh := make(chan struct{}, 1)
	e.LoadDashboard(ctx, "smsf", positions, false, func(*models.DashboardSnapshot, error) { fresh <- struct{}{} })
	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never completed")
	}
	if _, ok := snapshots.Get("smsf", 1); !ok {
		t.Fatal("expected snapshot cached after first load")
	}

	// A second load inside the freshness gate returns the cache and never
	// calls back.
	cached := e.LoadDashboard(ctx, "smsf", positions, false, func(*models.DashboardSnapshot, error) { fresh <- struct{}{} })
	if cached == nil {
		t.Fatal("expected cached snapshot")
	}
	select {
	case <-fresh:
		t.Error("fresh snapshot must not trigger a refresh cycle")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEngine_ForceBypassesFreshnessGate(t *testing.T) {
	f := newStubFeed()
	f.setQuote("VAS.AX", 96, false)

	e, _, _ := newTestEngine(t, f)
	ctx := context.Background()

	positions := []models.Position{{Symbol: "VAS.AX", Quantity: 10, UnitCost: 80, AcquiredAt: day(2026, 1, 1)}}

	fresh := make(chan struct{}, 2)
	e.LoadDashboard(ctx, "smsf", positions, false, func(*models.DashboardSnapshot, error) { fresh <- struct{}{} })
	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never completed")
	}

	e.LoadDashboard(ctx, "smsf", positions, true, func(*models.DashboardSnapshot, error) { fresh <- struct{}{} })
	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("forced load must run a refresh cycle")
	}
}

func TestEngine_InvalidateDropsState(t *testing.T) {
	f := newStubFeed()
	f.setQuote("VAS.AX", 96, false)
	f.history["VAS.AX"] = []models.PricePoint{{Date: day(2026, 8, 28), Close: 95}}

	e, store, snapshots := newTestEngine(t, f)
	ctx := context.Background()

	positions := []models.Position{{Symbol: "VAS.AX", Quantity: 10, UnitCost: 80, AcquiredAt: day(2026, 1, 1)}}

	fresh := make(chan struct{}, 1)
	e.LoadDashboard(ctx, "smsf", positions, false, func(*models.DashboardSnapshot, error) { fresh <- struct{}{} })
	select {
	case <-fresh:
	case <-time.After(2 * time.Second):
		t.Fatal("load never completed")
	}
	if _, ok := store.Get("VAS.AX"); !ok {
		t.Fatal("expected series cached after load")
	}

	if err := e.Invalidate(ctx, "smsf", []string{"VAS.AX"}); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}

	if _, ok := snapshots.Get("smsf", 1); ok {
		t.Error("expected snapshot dropped")
	}
	if _, ok := store.Get("VAS.AX"); ok {
		t.Error("expected series dropped")
	}
}

func TestEngine_OnPriceChangeUnsubscribe(t *testing.T) {
	f := newStubFeed()
	e, _, _ := newTestEngine(t, f)

	var calls int
	unsubscribe := e.OnPriceChange(func([]models.PriceDelta) { calls++ })

	e.emitDeltas([]models.PriceDelta{{Symbol: "VAS.AX", Price: 96}})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}

	unsubscribe()
	e.emitDeltas([]models.PriceDelta{{Symbol: "VAS.AX", Price: 97}})
	if calls != 1 {
		t.Errorf("unsubscribed listener must not be called, got %d calls", calls)
	}
}
