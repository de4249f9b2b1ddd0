package models

import "time"

// DashboardSnapshot is a fully computed, render-ready view of one tracked
// collection, cached so the dashboard can paint instantly before fresh data
// arrives. ExpectedSize records the number of tracked positions at capture
// time; a size mismatch is the staleness signal when positions are added or
// removed elsewhere.
type DashboardSnapshot struct {
	CollectionID string             `json:"collection_id"`
	ExpectedSize int                `json:"expected_size"`
	Positions    []EnrichedPosition `json:"positions"`
	Chart        []ChartPoint       `json:"chart"`
	Totals       Totals             `json:"totals"`
	MarketOpen   bool               `json:"market_open"`
	HadErrors    bool               `json:"had_errors"`
	CapturedAt   time.Time          `json:"captured_at"`
}
