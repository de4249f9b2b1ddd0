package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bobmcallan/vire-track/internal/models"
)

// memKV is an in-memory KeyValueStorage used to exercise the write-through
// path without a real Badger store. failSet simulates a durable store that
// has run out of quota.
type memKV struct {
	mu      sync.Mutex
	data    map[string]string
	failSet bool
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("key not found: %s", key)
	}
	return val, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return fmt.Errorf("quota exceeded")
	}
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) GetAll(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.data))
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

// stubFeed is a scriptable PriceFeed that tracks how many requests are in
// flight at once.
type stubFeed struct {
	mu         sync.Mutex
	quotes     map[string]models.Quote
	quoteErr   map[string]error
	history    map[string][]models.PricePoint
	historyErr map[string]error
	syncState  map[string]time.Time
	syncErr    error

	// lastFrom records the from date of the most recent history request
	// per symbol.
	lastFrom map[string]time.Time

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	// delay makes requests overlap so concurrency bounds are observable.
	delay time.Duration
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		quotes:     make(map[string]models.Quote),
		quoteErr:   make(map[string]error),
		history:    make(map[string][]models.PricePoint),
		historyErr: make(map[string]error),
		syncState:  make(map[string]time.Time),
		lastFrom:   make(map[string]time.Time),
	}
}

func (f *stubFeed) track() func() {
	n := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

func (f *stubFeed) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	defer f.track()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.quoteErr[symbol]; err != nil {
		return nil, err
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, symbol)
	}
	return &q, nil
}

func (f *stubFeed) GetHistory(_ context.Context, symbol string, from time.Time) ([]models.PricePoint, error) {
	defer f.track()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFrom[symbol] = from
	if err := f.historyErr[symbol]; err != nil {
		return nil, err
	}
	var out []models.PricePoint
	for _, p := range f.history[symbol] {
		if !p.Date.Before(from) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *stubFeed) GetSyncState(_ context.Context, symbols []string) (map[string]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	out := make(map[string]time.Time, len(symbols))
	for _, s := range symbols {
		if d, ok := f.syncState[s]; ok {
			out[s] = d
		}
	}
	return out, nil
}

func (f *stubFeed) setQuote(symbol string, price float64, open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[symbol] = models.Quote{Symbol: symbol, Price: price, MarketOpen: open}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
