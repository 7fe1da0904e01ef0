package ports

import (
	"context"

	"github.com/bft-labs/stationd/internal/domain"
)

// StateRepository persists connection counters across restarts.
type StateRepository interface {
	// Load retrieves the last saved stats.
	// Returns zero stats and nil error if nothing was saved yet.
	Load(ctx context.Context) (domain.Stats, error)

	// Save persists stats atomically.
	Save(ctx context.Context, stats domain.Stats) error
}
