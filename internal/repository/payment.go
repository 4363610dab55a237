package repository

import (
	"context"

	"ledger/internal/domain"
)

// PaymentRepository defines the read operations the engine needs for
// payments. The engine never writes payments; settlement toggles are
// performed by the surrounding application and only observed here.
type PaymentRepository interface {
	// ListByTrip retrieves all payments for a trip, ordered by creation
	// time then ID so repeated reads of an unchanged trip are identical.
	ListByTrip(ctx context.Context, tripID string) ([]domain.Payment, error)
}
