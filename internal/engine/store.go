// Package engine implements the local cache and incremental sync engine:
// durable per-symbol price series, fetch planning, bounded-concurrency
// refresh, snapshot caching and market-hours live polling.
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

const seriesKeyPrefix = "series:"

// CacheStore keeps the per-symbol price series in two places: a fast
// in-memory map and the durable key-value store. Every mutation writes
// through to both; the durable store is read once at initialization.
//
// A durable write failure (e.g. quota exceeded) degrades rather than fails:
// the in-memory copy stays authoritative for the session and the caller gets
// a models.ErrDurableDegraded warning it can log and shed entries on.
type CacheStore struct {
	mu      sync.RWMutex
	entries map[string]*models.SeriesRecord
	kv      interfaces.KeyValueStorage
	logger  *common.Logger
}

// NewCacheStore creates a cache store and loads all persisted series records.
// Records written by an incompatible schema version are discarded, not
// surfaced as errors: the cache is best-effort and absence is the normal
// cold case.
func NewCacheStore(ctx context.Context, kv interfaces.KeyValueStorage, logger *common.Logger) (*CacheStore, error) {
	s := &CacheStore{
		entries: make(map[string]*models.SeriesRecord),
		kv:      kv,
		logger:  logger,
	}

	all, err := kv.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache store: %w", err)
	}

	discarded := 0
	for key, raw := range all {
		if !strings.HasPrefix(key, seriesKeyPrefix) {
			continue
		}
		var rec models.SeriesRecord
		if err := models.DecodeRecord(raw, &rec); err != nil {
			discarded++
			if delErr := kv.Delete(ctx, key); delErr != nil {
				logger.Warn().Str("key", key).Err(delErr).Msg("failed to drop unreadable series record")
			}
			continue
		}
		s.entries[rec.Symbol] = &rec
	}

	logger.Debug().
		Int("series", len(s.entries)).
		Int("discarded", discarded).
		Msg("cache store loaded")

	return s, nil
}

// Set writes a series record to memory and the durable store. The record is
// stamped with the write time. Returns a wrapped models.ErrDurableDegraded
// when only the durable write failed.
func (s *CacheStore) Set(ctx context.Context, rec *models.SeriesRecord) error {
	rec.LastWrite = time.Now().UTC()

	raw, err := models.EncodeRecord(rec)
	if err != nil {
		// Nothing applied: both copies still hold the previous state.
		return fmt.Errorf("failed to encode series for %s: %w", rec.Symbol, err)
	}

	s.mu.Lock()
	s.entries[rec.Symbol] = rec.Clone()
	s.mu.Unlock()

	if err := s.kv.Set(ctx, seriesKeyPrefix+rec.Symbol, raw); err != nil {
		s.logger.Warn().Str("symbol", rec.Symbol).Err(err).Msg("durable series write failed, in-memory copy retained")
		return fmt.Errorf("%w: %s: %v", models.ErrDurableDegraded, rec.Symbol, err)
	}
	return nil
}

// Get returns a copy of the cached series for a symbol, or false when absent.
func (s *CacheStore) Get(symbol string) (*models.SeriesRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.entries[symbol]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Remove deletes a symbol from both representations. Removing an absent
// symbol is a no-op.
func (s *CacheStore) Remove(ctx context.Context, symbol string) error {
	s.mu.Lock()
	delete(s.entries, symbol)
	s.mu.Unlock()

	if err := s.kv.Delete(ctx, seriesKeyPrefix+symbol); err != nil {
		return fmt.Errorf("failed to remove series for %s: %w", symbol, err)
	}
	return nil
}

// ValidateAndClean removes every cached series whose symbol is not in the
// active set, so the cache never holds symbols absent from the current
// working set. Returns whether any removal occurred.
func (s *CacheStore) ValidateAndClean(ctx context.Context, active map[string]struct{}) (bool, error) {
	s.mu.RLock()
	var orphans []string
	for symbol := range s.entries {
		if _, ok := active[symbol]; !ok {
			orphans = append(orphans, symbol)
		}
	}
	s.mu.RUnlock()

	for _, symbol := range orphans {
		if err := s.Remove(ctx, symbol); err != nil {
			return true, err
		}
	}

	if len(orphans) > 0 {
		s.logger.Info().Int("removed", len(orphans)).Msg("pruned orphaned series from cache")
	}
	return len(orphans) > 0, nil
}

// Len returns the number of cached series.
func (s *CacheStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Symbols returns the cached symbols.
func (s *CacheStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.entries))
	for symbol := range s.entries {
		symbols = append(symbols, symbol)
	}
	return symbols
}
