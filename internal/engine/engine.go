package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/models"
)

// Engine is the facade collaborators talk to: instant snapshot loads with an
// asynchronous refresh behind them, cache invalidation after position edits,
// and a registration hook for live price patches. Rendering is entirely the
// caller's concern; the engine emits pure data.
type Engine struct {
	store     *CacheStore
	snapshots *SnapshotCache
	orch      *Orchestrator
	updater   *Updater
	logger    *common.Logger

	mu            sync.Mutex
	listeners     map[int]func([]models.PriceDelta)
	nextListener  int
	refreshCancel context.CancelFunc

	base       context.Context
	baseCancel context.CancelFunc
}

// New creates the engine facade over an initialized store, snapshot cache and
// orchestrator.
func New(store *CacheStore, snapshots *SnapshotCache, orch *Orchestrator, pollInterval time.Duration, logger *common.Logger) *Engine {
	base, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:      store,
		snapshots:  snapshots,
		orch:       orch,
		logger:     logger,
		listeners:  make(map[int]func([]models.PriceDelta)),
		base:       base,
		baseCancel: cancel,
	}
	e.updater = NewUpdater(orch, pollInterval, e.emitDeltas, logger)
	return e
}

// LoadDashboard returns the cached snapshot for the collection immediately
// (nil on a cold start) and kicks off an asynchronous refresh cycle whose
// result is delivered to onFresh. A cached snapshot younger than the cycle
// freshness gate suppresses the refresh unless force is set. Starting a new
// load cancels any refresh still in flight.
func (e *Engine) LoadDashboard(ctx context.Context, collectionID string, positions []models.Position, force bool, onFresh func(*models.DashboardSnapshot, error)) *models.DashboardSnapshot {
	cached, ok := e.snapshots.Get(collectionID, len(positions))

	if ok && !force && common.IsFresh(cached.CapturedAt, common.FreshnessCycle) {
		e.logger.Debug().Str("collection", collectionID).Msg("snapshot fresh, skipping refresh cycle")
		if cached.MarketOpen {
			e.updater.Start(positions, displayedPrices(cached.Positions))
		}
		return cached
	}

	e.mu.Lock()
	if e.refreshCancel != nil {
		e.refreshCancel()
	}
	rctx, cancel := context.WithCancel(e.base)
	e.refreshCancel = cancel
	e.mu.Unlock()

	go e.refresh(rctx, collectionID, positions, onFresh)

	return cached
}

// refresh runs one fetch cycle and publishes the resulting snapshot. A
// cycle-level failure leaves the last good snapshot in place; the caller is
// told so it can show a "could not refresh" indicator instead of an error
// page.
func (e *Engine) refresh(ctx context.Context, collectionID string, positions []models.Position, onFresh func(*models.DashboardSnapshot, error)) {
	result, err := e.orch.Refresh(ctx, positions)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			e.logger.Warn().Str("collection", collectionID).Err(err).Msg("refresh cycle failed")
		}
		if onFresh != nil {
			onFresh(nil, err)
		}
		return
	}

	snap := &models.DashboardSnapshot{
		CollectionID: collectionID,
		Positions:    result.Positions,
		Chart:        result.Chart,
		Totals:       result.Totals,
		MarketOpen:   result.MarketOpen,
		HadErrors:    result.HadErrors,
	}
	if err := e.snapshots.Put(ctx, snap); err != nil && !errors.Is(err, models.ErrDurableDegraded) {
		e.logger.Warn().Str("collection", collectionID).Err(err).Msg("failed to cache snapshot")
	}

	active := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		active[p.Symbol] = struct{}{}
	}
	if _, err := e.store.ValidateAndClean(ctx, active); err != nil {
		e.logger.Warn().Err(err).Msg("cache cleanup failed")
	}

	if result.MarketOpen {
		e.updater.Start(positions, displayedPrices(result.Positions))
	} else {
		e.updater.Stop()
	}

	if onFresh != nil {
		onFresh(snap, nil)
	}
}

// Invalidate drops the collection's snapshot and the cache entries for the
// given symbols, and stops live polling. Called after position edits so the
// next load is a clean cycle.
func (e *Engine) Invalidate(ctx context.Context, collectionID string, symbols []string) error {
	e.updater.Stop()

	var firstErr error
	if err := e.snapshots.Remove(ctx, collectionID); err != nil {
		firstErr = err
	}
	for _, symbol := range symbols {
		if err := e.store.Remove(ctx, symbol); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	e.logger.Info().Str("collection", collectionID).Int("symbols", len(symbols)).Msg("collection invalidated")
	return firstErr
}

// OnPriceChange registers a listener for live price patches. The returned
// function unsubscribes it.
func (e *Engine) OnPriceChange(listener func([]models.PriceDelta)) func() {
	e.mu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = listener
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// Close stops the live poller and cancels any refresh in flight.
func (e *Engine) Close() {
	e.updater.Stop()
	e.baseCancel()
}

func (e *Engine) emitDeltas(deltas []models.PriceDelta) {
	e.mu.Lock()
	listeners := make([]func([]models.PriceDelta), 0, len(e.listeners))
	for _, l := range e.listeners {
		listeners = append(listeners, l)
	}
	e.mu.Unlock()

	for _, l := range listeners {
		l(deltas)
	}
}

func displayedPrices(positions []models.EnrichedPosition) map[string]float64 {
	prices := make(map[string]float64, len(positions))
	for _, p := range positions {
		prices[p.Symbol] = p.CurrentPrice
	}
	return prices
}
