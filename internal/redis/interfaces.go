package redis

import (
	"context"

	"ledger/internal/rates"
)

// ChangePublisher is the outbound half of the change feed, implemented by
// ChangeFeed and by test doubles.
type ChangePublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// Ensure concrete types implement interfaces.
var (
	_ ChangePublisher = (*ChangeFeed)(nil)
	_ rates.Provider  = (*RateCache)(nil)
)
