package repository

import (
	"context"

	"ledger/internal/domain"
)

// SplitRepository defines the read operations the engine needs for splits.
type SplitRepository interface {
	// ListByPayments retrieves the splits belonging to the given payments,
	// ordered by payment ID then split ID. An empty input yields an empty
	// result, not an error.
	ListByPayments(ctx context.Context, paymentIDs []string) ([]domain.Split, error)
}
