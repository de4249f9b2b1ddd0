package models

import "errors"

// Error taxonomy for the sync engine. Throttled and network failures are
// retryable through the backoff executor; ErrNotFound is permanent for the
// cycle; ErrDurableDegraded is a warning, not a failure — the in-memory cache
// remains authoritative for the session.
var (
	// ErrThrottled signals the remote feed asked the caller to slow down.
	ErrThrottled = errors.New("feed throttled request")

	// ErrNotFound signals an unknown or delisted symbol. Never retried.
	ErrNotFound = errors.New("symbol not found")

	// ErrDurableDegraded signals a durable-store write failed (e.g. quota);
	// the in-memory copy was still updated.
	ErrDurableDegraded = errors.New("durable store write failed")

	// ErrSchemaMismatch signals a stored record was written by an
	// incompatible schema version and has been discarded.
	ErrSchemaMismatch = errors.New("stored record schema mismatch")
)
