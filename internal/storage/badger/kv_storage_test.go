package badger

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/bobmcallan/vire-track/internal/config"
)

func newTestKV(t *testing.T) *KVStorage {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.BadgerConfig{Path: filepath.Join(t.TempDir(), "badger")}

	db, err := NewBadgerDB(logger, cfg)
	if err != nil {
		t.Fatalf("failed to open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewKVStorage(db, logger)
}

func TestKVStorage_SetGet(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "series:VAS.AX", `{"symbol":"VAS.AX"}`); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "series:VAS.AX")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != `{"symbol":"VAS.AX"}` {
		t.Errorf("unexpected value: %s", val)
	}
}

func TestKVStorage_GetMissing(t *testing.T) {
	kv := newTestKV(t)

	if _, err := kv.Get(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing key")
	}
}

func TestKVStorage_Upsert(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	val, err := kv.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "v2" {
		t.Errorf("expected v2, got %s", val)
	}
}

func TestKVStorage_Delete(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, "k"); err == nil {
		t.Error("expected miss after delete")
	}

	// Deleting an absent key is a no-op.
	if err := kv.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete must be a no-op, got %v", err)
	}
}

func TestKVStorage_GetAll(t *testing.T) {
	kv := newTestKV(t)
	ctx := context.Background()

	entries := map[string]string{
		"series:VAS.AX": "a",
		"series:IVV.AX": "b",
		"snapshot:smsf": "c",
	}
	for k, v := range entries {
		if err := kv.Set(ctx, k, v); err != nil {
			t.Fatalf("Set %s failed: %v", k, err)
		}
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(all))
	}
	for k, v := range entries {
		if all[k] != v {
			t.Errorf("key %s: expected %s, got %s", k, v, all[k])
		}
	}
}
