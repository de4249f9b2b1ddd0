package common

import "time"

// Freshness TTLs for engine data, in two tiers:
//
// Tier 1 — Fast / Real-time: live quotes during market hours. Refreshed on
// the polling interval, never cached across sessions.
//
// Tier 2 — Derived views: rendered dashboard snapshots and refresh cycles.
// Time-based TTL; a stale snapshot is treated as a cold start.
const (
	// FreshnessSnapshot bounds how old a cached dashboard snapshot may be
	// before the loader treats it as absent.
	FreshnessSnapshot = 24 * time.Hour

	// FreshnessCycle gates back-to-back refresh cycles: a cycle that starts
	// within this window of the previous successful one reuses the snapshot
	// instead of hitting the feed again, unless forced.
	FreshnessCycle = 5 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
