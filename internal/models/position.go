// Package models defines data structures for vire-track
package models

import "time"

// Position represents a tracked holding as supplied by the position CRUD
// layer. Identity within a collection is the symbol; the engine references
// positions but never owns or mutates them.
type Position struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name,omitempty"`
	Quantity   float64   `json:"quantity"`
	UnitCost   float64   `json:"unit_cost"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// CostBasis returns the total acquisition cost of the position.
func (p Position) CostBasis() float64 {
	return p.Quantity * p.UnitCost
}

// EnrichedPosition is a position decorated with live market data and derived
// valuation fields. It is recomputed on every refresh cycle and only ever
// persisted inside a DashboardSnapshot.
type EnrichedPosition struct {
	Position
	CurrentPrice float64 `json:"current_price"`
	MarketValue  float64 `json:"market_value"`
	CostBasis    float64 `json:"cost_basis"`
	GainLoss     float64 `json:"gain_loss"`
	GainLossPct  float64 `json:"gain_loss_pct"`
	MarketOpen   bool    `json:"market_open"`
	Errored      bool    `json:"errored"`
}

// Enrich builds an EnrichedPosition from a position and a current price.
func Enrich(p Position, price float64, marketOpen, errored bool) EnrichedPosition {
	e := EnrichedPosition{
		Position:     p,
		CurrentPrice: price,
		MarketValue:  price * p.Quantity,
		CostBasis:    p.CostBasis(),
		MarketOpen:   marketOpen,
		Errored:      errored,
	}
	e.GainLoss = e.MarketValue - e.CostBasis
	if e.CostBasis != 0 {
		e.GainLossPct = e.GainLoss / e.CostBasis * 100
	}
	return e
}

// Totals aggregates valuation across a collection of enriched positions.
// Errored positions contribute at cost, i.e. zero gain/loss.
type Totals struct {
	MarketValue float64 `json:"market_value"`
	CostBasis   float64 `json:"cost_basis"`
	GainLoss    float64 `json:"gain_loss"`
	GainLossPct float64 `json:"gain_loss_pct"`
}

// SumTotals computes aggregate totals over enriched positions.
func SumTotals(positions []EnrichedPosition) Totals {
	var t Totals
	for _, p := range positions {
		t.MarketValue += p.MarketValue
		t.CostBasis += p.CostBasis
	}
	t.GainLoss = t.MarketValue - t.CostBasis
	if t.CostBasis != 0 {
		t.GainLossPct = t.GainLoss / t.CostBasis * 100
	}
	return t
}

// Quote holds a current price observation from the remote feed.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Name          string  `json:"name,omitempty"`
	MarketOpen    bool    `json:"market_open"`
	PreviousClose float64 `json:"previous_close,omitempty"`
}

// PriceDelta is the minimal patch emitted by the live updater when a tracked
// instrument's displayed price changes between polls.
type PriceDelta struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	PreviousPrice float64 `json:"previous_price"`
	MarketOpen    bool    `json:"market_open"`
}
