package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/feed"
	"github.com/bobmcallan/vire-track/internal/interfaces"
	"github.com/bobmcallan/vire-track/internal/models"
)

// Orchestrator drives batched retrieval of current prices and historical
// series for a collection of positions. Batches of batchSize run their
// per-symbol tasks concurrently and settle completely before the next batch
// starts, so at most batchSize requests are ever in flight against the
// rate-limited feed. Per-symbol failures never abort siblings or the cycle.
type Orchestrator struct {
	feed       interfaces.PriceFeed
	store      *CacheStore
	exec       *feed.Executor
	planner    *Planner
	batchSize  int
	maxRetries uint64
	logger     *common.Logger
}

// NewOrchestrator creates an orchestrator. batchSize defaults to 4.
func NewOrchestrator(
	priceFeed interfaces.PriceFeed,
	store *CacheStore,
	exec *feed.Executor,
	planner *Planner,
	batchSize int,
	maxRetries int,
	logger *common.Logger,
) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 4
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Orchestrator{
		feed:       priceFeed,
		store:      store,
		exec:       exec,
		planner:    planner,
		batchSize:  batchSize,
		maxRetries: uint64(maxRetries),
		logger:     logger,
	}
}

// CycleResult is the outcome of one full refresh cycle.
type CycleResult struct {
	Positions  []models.EnrichedPosition
	Totals     models.Totals
	Chart      []models.ChartPoint
	MarketOpen bool
	HadErrors  bool
}

// Refresh runs one full cycle: sync-state lookup, batched quote + history
// retrieval, write-through caching, enrichment and aggregation. Every
// position yields a result; failed ones are error-flagged and fall back to
// break-even pricing and the cached series. Returns an error only when the
// context is cancelled, in which case no further writes are applied.
func (o *Orchestrator) Refresh(ctx context.Context, positions []models.Position) (*CycleResult, error) {
	symbols := make([]string, len(positions))
	for i, p := range positions {
		symbols[i] = p.Symbol
	}

	var syncState map[string]time.Time
	err := o.exec.Execute(ctx, func() error {
		state, err := o.feed.GetSyncState(ctx, symbols)
		if err != nil {
			return err
		}
		syncState = state
		return nil
	}, o.maxRetries)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Unknown markers degrade every plan to a full fetch.
		o.logger.Warn().Err(err).Msg("sync-state lookup failed, planning full fetches")
	}

	enriched := make([]models.EnrichedPosition, len(positions))
	if err := o.inBatches(ctx, len(positions), func(i int) {
		enriched[i] = o.refreshOne(ctx, positions[i], syncState[positions[i].Symbol])
	}); err != nil {
		return nil, err
	}

	result := &CycleResult{
		Positions: enriched,
		Totals:    models.SumTotals(enriched),
		Chart:     o.buildChart(positions),
	}
	for _, e := range enriched {
		if e.MarketOpen {
			result.MarketOpen = true
		}
		if e.Errored {
			result.HadErrors = true
		}
	}
	return result, nil
}

// PollQuotes fetches only current prices for the positions, batched the same
// way as Refresh but without the historical step. Returns the successful
// quotes by symbol and whether any of them reports the market open.
func (o *Orchestrator) PollQuotes(ctx context.Context, positions []models.Position) (map[string]models.Quote, bool, error) {
	quotes := make([]*models.Quote, len(positions))
	if err := o.inBatches(ctx, len(positions), func(i int) {
		var quote *models.Quote
		err := o.exec.Execute(ctx, func() error {
			q, err := o.feed.GetQuote(ctx, positions[i].Symbol)
			if err != nil {
				return err
			}
			quote = q
			return nil
		}, o.maxRetries)
		if err != nil {
			o.logger.Debug().Str("symbol", positions[i].Symbol).Err(err).Msg("quote poll failed")
			return
		}
		quotes[i] = quote
	}); err != nil {
		return nil, false, err
	}

	bySymbol := make(map[string]models.Quote, len(positions))
	anyOpen := false
	for i, q := range quotes {
		if q == nil {
			continue
		}
		bySymbol[positions[i].Symbol] = *q
		if q.MarketOpen {
			anyOpen = true
		}
	}
	return bySymbol, anyOpen, nil
}

// inBatches runs task(0..n-1) in consecutive batches of batchSize. Each batch
// settles fully before the next starts. Stops between batches when the
// context is cancelled.
func (o *Orchestrator) inBatches(ctx context.Context, n int, task func(int)) error {
	for start := 0; start < n; start += o.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+o.batchSize, n)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				task(i)
			}(i)
		}
		wg.Wait()
	}
	return ctx.Err()
}

// refreshOne handles a single position: current quote, fetch planning,
// historical retrieval and write-through. Any failure flags the result and
// degrades to break-even pricing; the cached series is never truncated.
func (o *Orchestrator) refreshOne(ctx context.Context, pos models.Position, lastSynced time.Time) models.EnrichedPosition {
	var quote *models.Quote
	quoteErr := o.exec.Execute(ctx, func() error {
		q, err := o.feed.GetQuote(ctx, pos.Symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	}, o.maxRetries)
	if quoteErr != nil {
		o.logger.Debug().Str("symbol", pos.Symbol).Err(quoteErr).Msg("quote fetch failed")
	}

	historyErr := o.syncHistory(ctx, pos, lastSynced)

	errored := quoteErr != nil || historyErr != nil
	price := pos.UnitCost // break-even display when the quote is unavailable
	marketOpen := false
	if quoteErr == nil {
		price = quote.Price
		marketOpen = quote.MarketOpen
		if pos.Name == "" && quote.Name != "" {
			pos.Name = quote.Name
		}
	}
	return models.Enrich(pos, price, marketOpen, errored)
}

// syncHistory plans and executes the historical fetch for one symbol and
// merges any new points into the cache.
func (o *Orchestrator) syncHistory(ctx context.Context, pos models.Position, lastSynced time.Time) error {
	rec, _ := o.store.Get(pos.Symbol)

	plan := o.planner.Plan(rec, lastSynced, pos.AcquiredAt, time.Now())
	if plan.Mode == FetchSkip {
		return nil
	}

	var points []models.PricePoint
	err := o.exec.Execute(ctx, func() error {
		pts, err := o.feed.GetHistory(ctx, pos.Symbol, plan.From)
		if err != nil {
			return err
		}
		points = pts
		return nil
	}, o.maxRetries)
	if err != nil {
		o.logger.Debug().
			Str("symbol", pos.Symbol).
			Str("mode", plan.Mode.String()).
			Err(err).
			Msg("history fetch failed, keeping cached series")
		return err
	}

	// An empty response means no new trading days, not an empty history:
	// the cached series stays untouched.
	if len(points) == 0 {
		return nil
	}

	if rec == nil {
		rec = &models.SeriesRecord{Symbol: pos.Symbol}
	}
	added := rec.Merge(points)
	if !lastSynced.IsZero() {
		rec.SourceSyncDate = models.DayOf(lastSynced)
	} else {
		rec.SourceSyncDate = rec.LastDate()
	}

	// An aborted cycle must not leave partial writes behind.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if err := o.store.Set(ctx, rec); err != nil {
		if errors.Is(err, models.ErrDurableDegraded) {
			// Session continues on the in-memory copy.
			return nil
		}
		return err
	}

	o.logger.Debug().
		Str("symbol", pos.Symbol).
		Str("mode", plan.Mode.String()).
		Int("added", added).
		Msg("series updated")
	return nil
}

// buildChart derives the aggregate daily value series from the cached series
// of all positions. Missing days carry the last known close forward; a
// symbol contributes only from its first cached date.
func (o *Orchestrator) buildChart(positions []models.Position) []models.ChartPoint {
	type held struct {
		quantity float64
		closes   map[time.Time]float64
		last     float64
		started  bool
	}

	dates := make(map[time.Time]struct{})
	holdings := make([]*held, 0, len(positions))
	for _, pos := range positions {
		rec, ok := o.store.Get(pos.Symbol)
		if !ok || len(rec.Points) == 0 {
			continue
		}
		h := &held{quantity: pos.Quantity, closes: make(map[time.Time]float64, len(rec.Points))}
		for _, p := range rec.Points {
			h.closes[p.Date] = p.Close
			dates[p.Date] = struct{}{}
		}
		holdings = append(holdings, h)
	}
	if len(dates) == 0 {
		return nil
	}

	ordered := make([]time.Time, 0, len(dates))
	for d := range dates {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	chart := make([]models.ChartPoint, 0, len(ordered))
	for _, d := range ordered {
		var value float64
		for _, h := range holdings {
			if close, ok := h.closes[d]; ok {
				h.last = close
				h.started = true
			}
			if h.started {
				value += h.quantity * h.last
			}
		}
		chart = append(chart, models.ChartPoint{Date: d, Value: value})
	}
	return chart
}
