package engine

import (
	"time"

	"github.com/bobmcallan/vire-track/internal/models"
)

// FetchMode is the planner's verdict for one symbol.
type FetchMode int

const (
	// FetchSkip means the cache already covers every trading day that can
	// exist; no request is made.
	FetchSkip FetchMode = iota
	// FetchIncremental means only days after the feed's last-synced date are
	// requested.
	FetchIncremental
	// FetchFull means the whole lookback window is requested.
	FetchFull
)

func (m FetchMode) String() string {
	switch m {
	case FetchSkip:
		return "skip"
	case FetchIncremental:
		return "incremental"
	case FetchFull:
		return "full"
	default:
		return "unknown"
	}
}

// FetchPlan is the required historical range for one symbol. From is only
// meaningful for incremental and full fetches.
type FetchPlan struct {
	Mode FetchMode
	From time.Time
}

// Planner decides, per symbol, whether the cached series can be kept as-is,
// extended incrementally, or must be refetched in full. A cache that is
// merely older than the feed's last-synced marker is refetched in full: the
// cause of the staleness is unknown, so a narrow "last-synced plus one day"
// fetch could clobber months of history with a single day of data.
type Planner struct {
	lookbackMonths int
}

// NewPlanner creates a planner with the given lookback window.
func NewPlanner(lookbackMonths int) *Planner {
	if lookbackMonths <= 0 {
		lookbackMonths = 6
	}
	return &Planner{lookbackMonths: lookbackMonths}
}

// Plan computes the fetch plan for one symbol. rec may be nil (no cache
// entry); lastSynced may be zero (the feed's marker is unknown); acquired is
// the position's acquisition date. All comparisons are day-granular.
func (p *Planner) Plan(rec *models.SeriesRecord, lastSynced, acquired, now time.Time) FetchPlan {
	today := models.DayOf(now)

	from := today.AddDate(0, -p.lookbackMonths, 0)
	if acq := models.DayOf(acquired); !acq.IsZero() && acq.After(from) {
		from = acq
	}
	full := FetchPlan{Mode: FetchFull, From: from}

	if rec == nil || len(rec.Points) == 0 {
		return full
	}

	// Unknown marker: no trustworthy reference to plan an increment against.
	if lastSynced.IsZero() {
		return full
	}

	syncDay := models.DayOf(lastSynced)
	if models.DayOf(rec.LastWrite).Before(syncDay) {
		return full
	}

	next := syncDay.AddDate(0, 0, 1)
	if !next.Before(today) {
		// No new trading day can exist yet.
		return FetchPlan{Mode: FetchSkip}
	}
	return FetchPlan{Mode: FetchIncremental, From: next}
}
