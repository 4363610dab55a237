package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

// ListByTrip retrieves all payments for a trip in a stable order.
func (r *PaymentRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Payment, error) {
	query := `
		SELECT id, trip_id, payer_id, amount, currency, created_at, is_settled, settled_at
		FROM payments
		WHERE trip_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, storeErr("listing payments", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var amount string
		var settledAt sql.NullTime

		if err := rows.Scan(&p.ID, &p.TripID, &p.PayerID, &amount, &p.Currency, &p.CreatedAt, &p.IsSettled, &settledAt); err != nil {
			return nil, storeErr("scanning payment", err)
		}

		p.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, storeErr("parsing payment amount", err)
		}
		if settledAt.Valid {
			t := settledAt.Time
			p.SettledAt = &t
		}

		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating payments", err)
	}

	return payments, nil
}

var _ repository.PaymentRepository = (*PaymentRepository)(nil)
