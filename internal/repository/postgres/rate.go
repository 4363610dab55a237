package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/rates"
)

// RateRepository reads conversion factors from the conversion_rates table.
// The table is maintained by the surrounding application; the engine only
// reads the factor effective at the payment's creation time.
type RateRepository struct {
	q Querier
}

// NewRateRepository creates a new PostgreSQL rate repository.
func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{q: db}
}

// Factor returns the most recent factor for from->to effective at or
// before asOf. A missing pair maps to rates.ErrRateUnavailable.
func (r *RateRepository) Factor(ctx context.Context, from, to string, asOf time.Time) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return decimal.NewFromInt(1), nil
	}

	query := `
		SELECT factor
		FROM conversion_rates
		WHERE from_currency = $1 AND to_currency = $2 AND effective_at <= $3
		ORDER BY effective_at DESC
		LIMIT 1
	`

	var factor string
	err := r.q.QueryRowContext(ctx, query, from, to, asOf).Scan(&factor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Decimal{}, rates.ErrRateUnavailable
		}
		return decimal.Decimal{}, storeErr("looking up conversion rate", err)
	}

	f, err := decimal.NewFromString(factor)
	if err != nil {
		return decimal.Decimal{}, storeErr("parsing conversion rate", err)
	}
	return f, nil
}

var _ rates.Provider = (*RateRepository)(nil)
