package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/interfaces"
	"github.com/bobmcallan/vire-track/internal/models"
)

const snapshotKeyPrefix = "snapshot:"

// SnapshotCache holds the fully rendered dashboard snapshot per collection so
// a reload paints instantly before fresh data arrives. A snapshot is served
// only while its captured position count matches the collection's current
// size and it is younger than the TTL; anything else is a cold start.
type SnapshotCache struct {
	mu     sync.RWMutex
	items  map[string]*models.DashboardSnapshot
	kv     interfaces.KeyValueStorage
	ttl    time.Duration
	logger *common.Logger
}

// NewSnapshotCache creates a snapshot cache and loads persisted snapshots.
// Unreadable or version-mismatched records are dropped silently; snapshots
// are disposable by design.
func NewSnapshotCache(ctx context.Context, kv interfaces.KeyValueStorage, ttl time.Duration, logger *common.Logger) (*SnapshotCache, error) {
	if ttl <= 0 {
		ttl = common.FreshnessSnapshot
	}
	c := &SnapshotCache{
		items:  make(map[string]*models.DashboardSnapshot),
		kv:     kv,
		ttl:    ttl,
		logger: logger,
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot cache: %w", err)
	}
	for key, raw := range all {
		if !strings.HasPrefix(key, snapshotKeyPrefix) {
			continue
		}
		var snap models.DashboardSnapshot
		if err := models.DecodeRecord(raw, &snap); err != nil {
			if delErr := kv.Delete(ctx, key); delErr != nil {
				logger.Warn().Str("key", key).Err(delErr).Msg("failed to drop unreadable snapshot record")
			}
			continue
		}
		c.items[snap.CollectionID] = &snap
	}

	logger.Debug().Int("snapshots", len(c.items)).Msg("snapshot cache loaded")
	return c, nil
}

// Get returns the snapshot for a collection when it is still valid for the
// collection's current size. Expired or size-mismatched snapshots are treated
// as absent.
func (c *SnapshotCache) Get(collectionID string, currentSize int) (*models.DashboardSnapshot, bool) {
	c.mu.RLock()
	snap, ok := c.items[collectionID]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if snap.ExpectedSize != currentSize {
		return nil, false
	}
	if !common.IsFresh(snap.CapturedAt, c.ttl) {
		return nil, false
	}
	return snap, true
}

// Put stores a freshly computed snapshot in memory and the durable store.
// ExpectedSize and CapturedAt are stamped here. A durable write failure
// degrades with a models.ErrDurableDegraded warning.
func (c *SnapshotCache) Put(ctx context.Context, snap *models.DashboardSnapshot) error {
	snap.ExpectedSize = len(snap.Positions)
	snap.CapturedAt = time.Now().UTC()

	raw, err := models.EncodeRecord(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot for %s: %w", snap.CollectionID, err)
	}

	c.mu.Lock()
	c.items[snap.CollectionID] = snap
	c.mu.Unlock()

	if err := c.kv.Set(ctx, snapshotKeyPrefix+snap.CollectionID, raw); err != nil {
		c.logger.Warn().Str("collection", snap.CollectionID).Err(err).Msg("durable snapshot write failed, in-memory copy retained")
		return fmt.Errorf("%w: snapshot %s: %v", models.ErrDurableDegraded, snap.CollectionID, err)
	}
	return nil
}

// Remove drops a collection's snapshot from both representations.
func (c *SnapshotCache) Remove(ctx context.Context, collectionID string) error {
	c.mu.Lock()
	delete(c.items, collectionID)
	c.mu.Unlock()

	if err := c.kv.Delete(ctx, snapshotKeyPrefix+collectionID); err != nil {
		return fmt.Errorf("failed to remove snapshot for %s: %w", collectionID, err)
	}
	return nil
}
