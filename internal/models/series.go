package models

import (
	"sort"
	"time"
)

// PricePoint is a single day's closing price.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// SeriesRecord holds the cached historical price series for one symbol.
// Points are ascending by date with unique dates. SourceSyncDate is the feed's
// authoritative last-synced marker at the time of the last write; zero means
// unknown.
type SeriesRecord struct {
	Symbol         string       `json:"symbol"`
	Points         []PricePoint `json:"points"`
	LastWrite      time.Time    `json:"last_write"`
	SourceSyncDate time.Time    `json:"source_sync_date,omitempty"`
}

// Merge appends new points into the series, de-duplicating by date and keeping
// ascending order. Returns the number of points actually added. Existing
// points win on date collision so an overlapping refetch never rewrites
// history.
func (r *SeriesRecord) Merge(points []PricePoint) int {
	if len(points) == 0 {
		return 0
	}

	seen := make(map[time.Time]bool, len(r.Points))
	for _, p := range r.Points {
		seen[DayOf(p.Date)] = true
	}

	added := 0
	for _, p := range points {
		day := DayOf(p.Date)
		if seen[day] {
			continue
		}
		seen[day] = true
		r.Points = append(r.Points, PricePoint{Date: day, Close: p.Close})
		added++
	}

	if added > 0 {
		sort.Slice(r.Points, func(i, j int) bool {
			return r.Points[i].Date.Before(r.Points[j].Date)
		})
	}
	return added
}

// LastDate returns the date of the newest point, or zero if the series is empty.
func (r *SeriesRecord) LastDate() time.Time {
	if len(r.Points) == 0 {
		return time.Time{}
	}
	return r.Points[len(r.Points)-1].Date
}

// Clone returns a deep copy of the record.
func (r *SeriesRecord) Clone() *SeriesRecord {
	c := *r
	c.Points = make([]PricePoint, len(r.Points))
	copy(c.Points, r.Points)
	return &c
}

// DayOf truncates a timestamp to midnight UTC, the granularity every sync
// decision is made at.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ChartPoint is one day of the aggregate portfolio value series.
type ChartPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
