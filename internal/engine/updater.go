package engine

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/models"
)

// Updater is the market-hours live price poller. It cycles Idle -> Polling ->
// Idle: Start begins a fixed-interval loop that re-fetches current prices in
// bounded batches and emits a delta only for instruments whose displayed
// price changed. The tick on which no instrument reports the market open is
// the last one; the loop stops itself and issues no further polls.
type Updater struct {
	orch     *Orchestrator
	interval time.Duration
	emit     func([]models.PriceDelta)
	logger   *common.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	last   map[string]float64
}

// NewUpdater creates an updater polling at the given interval. The interval
// is chosen against the feed's per-minute rate limit; 60s default. emit may
// be nil.
func NewUpdater(orch *Orchestrator, interval time.Duration, emit func([]models.PriceDelta), logger *common.Logger) *Updater {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Updater{
		orch:     orch,
		interval: interval,
		emit:     emit,
		logger:   logger,
	}
}

// Start transitions to Polling for the given positions, seeded with the
// prices currently displayed. A running loop is replaced so a new refresh
// cycle or collection switch never leaves a poller running against stale
// positions.
func (u *Updater) Start(positions []models.Position, displayed map[string]float64) {
	u.mu.Lock()
	if u.cancel != nil {
		u.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	u.last = make(map[string]float64, len(displayed))
	for symbol, price := range displayed {
		u.last[symbol] = price
	}
	u.mu.Unlock()

	u.logger.Debug().Int("positions", len(positions)).Msg("live price polling started")
	go u.loop(ctx, positions)
}

// Stop transitions to Idle. Safe to call when already idle.
func (u *Updater) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.cancel != nil {
		u.cancel()
		u.cancel = nil
	}
}

// Polling reports whether the loop is running.
func (u *Updater) Polling() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.cancel != nil
}

func (u *Updater) loop(ctx context.Context, positions []models.Position) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !u.tick(ctx, positions) {
				u.logger.Debug().Msg("market closed, live price polling stopped")
				u.Stop()
				return
			}
		}
	}
}

// tick polls one round of quotes and emits deltas for changed prices.
// Returns false when no instrument reports the market open.
func (u *Updater) tick(ctx context.Context, positions []models.Position) bool {
	quotes, anyOpen, err := u.orch.PollQuotes(ctx, positions)
	if err != nil {
		// Cancelled; the loop exits via ctx.Done on the next select.
		return true
	}

	u.mu.Lock()
	var deltas []models.PriceDelta
	for symbol, quote := range quotes {
		previous, seen := u.last[symbol]
		if seen && previous == quote.Price {
			continue
		}
		u.last[symbol] = quote.Price
		deltas = append(deltas, models.PriceDelta{
			Symbol:        symbol,
			Price:         quote.Price,
			PreviousPrice: previous,
			MarketOpen:    quote.MarketOpen,
		})
	}
	u.mu.Unlock()

	if len(deltas) > 0 && u.emit != nil {
		u.emit(deltas)
	}
	return anyOpen
}
