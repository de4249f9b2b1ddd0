package interfaces

import (
	"context"
	"time"

	"github.com/bobmcallan/vire-track/internal/models"
)

// PriceFeed is the contract with the remote price service. Transport details
// live in the implementation; the engine only sees typed results and the
// error taxonomy in models.
type PriceFeed interface {
	// GetQuote returns the current price for a symbol. Errors are explicit:
	// models.ErrThrottled, models.ErrNotFound, or a wrapped transport error.
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)

	// GetHistory returns daily closes from the given date onward. An empty
	// slice means "no new data since from" and is not an error.
	GetHistory(ctx context.Context, symbol string, from time.Time) ([]models.PricePoint, error)

	// GetSyncState returns the feed's authoritative last-synced date per
	// symbol. A symbol absent from the map means "unknown", which is never
	// conflated with "no data".
	GetSyncState(ctx context.Context, symbols []string) (map[string]time.Time, error)
}

// PositionSource supplies the tracked positions for a collection. Position
// CRUD and ownership rules are an external collaborator's concern.
type PositionSource interface {
	Positions(ctx context.Context, collectionID string) ([]models.Position, error)
}
