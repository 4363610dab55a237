package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/repository"
)

// SplitRepository is a PostgreSQL implementation of repository.SplitRepository.
type SplitRepository struct {
	q Querier
}

// NewSplitRepository creates a new PostgreSQL split repository.
func NewSplitRepository(db *sql.DB) *SplitRepository {
	return &SplitRepository{q: db}
}

// NewSplitRepositoryWithTx creates a split repository using a transaction.
func NewSplitRepositoryWithTx(tx *sql.Tx) *SplitRepository {
	return &SplitRepository{q: tx}
}

// ListByPayments retrieves the splits belonging to the given payments.
func (r *SplitRepository) ListByPayments(ctx context.Context, paymentIDs []string) ([]domain.Split, error) {
	if len(paymentIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, payment_id, debtor_user_id, amount, confirmation_status, confirmed_by, confirmed_at
		FROM splits
		WHERE payment_id = ANY($1)
		ORDER BY payment_id, id
	`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(paymentIDs))
	if err != nil {
		return nil, storeErr("listing splits", err)
	}
	defer rows.Close()

	var splits []domain.Split
	for rows.Next() {
		var s domain.Split
		var amount string
		var confirmedBy sql.NullString
		var confirmedAt sql.NullTime

		if err := rows.Scan(&s.ID, &s.PaymentID, &s.DebtorUserID, &amount, &s.ConfirmationStatus, &confirmedBy, &confirmedAt); err != nil {
			return nil, storeErr("scanning split", err)
		}

		s.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, storeErr("parsing split amount", err)
		}
		if confirmedBy.Valid {
			s.ConfirmedBy = confirmedBy.String
		}
		if confirmedAt.Valid {
			t := confirmedAt.Time
			s.ConfirmedAt = &t
		}

		splits = append(splits, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterating splits", err)
	}

	return splits, nil
}

var _ repository.SplitRepository = (*SplitRepository)(nil)
