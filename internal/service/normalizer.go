package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/rates"
)

// normalizeResult is the output of one normalization pass: the debt edges
// eligible for netting plus the payments that had to be left out.
type normalizeResult struct {
	Edges              []domain.DebtEdge
	ExcludedPaymentIDs []string
}

// eligibleSplit decides whether a split generates a debt edge at all.
// Settled payments contribute nothing, denied splits are treated as "this
// debt does not exist", and a payer's own share is a wash, not a debt to
// themselves. Pending and confirmed splits count identically: money is
// owed until it is explicitly denied.
func eligibleSplit(payment domain.Payment, split domain.Split) bool {
	if payment.IsSettled {
		return false
	}
	if split.ConfirmationStatus == domain.ConfirmationDenied {
		return false
	}
	if split.DebtorUserID == payment.PayerID {
		return false
	}
	return true
}

// normalizeEdges turns payments and their splits into currency-normalized
// debt edges. Conversion factors are looked up as of each payment's
// creation time so historical summaries do not drift when rates change.
//
// A payment whose rate cannot be resolved is excluded and reported rather
// than failing the whole pass; partial results are more useful than none
// for a balance view.
func normalizeEdges(ctx context.Context, payments []domain.Payment, splitsByPayment map[string][]domain.Split, baseCurrency string, provider rates.Provider) normalizeResult {
	var result normalizeResult

	for _, payment := range payments {
		splits := splitsByPayment[payment.ID]

		var factor decimal.Decimal
		factorKnown := false

		for _, split := range splits {
			if !eligibleSplit(payment, split) {
				continue
			}

			if !factorKnown {
				f, err := provider.Factor(ctx, payment.Currency, baseCurrency, payment.CreatedAt)
				if err != nil {
					slog.Warn("excluding payment from summary",
						"payment_id", payment.ID,
						"trip_id", payment.TripID,
						"currency", payment.Currency,
						"base_currency", baseCurrency,
						"error", err,
					)
					result.ExcludedPaymentIDs = append(result.ExcludedPaymentIDs, payment.ID)
					break
				}
				factor = f
				factorKnown = true
			}

			result.Edges = append(result.Edges, domain.DebtEdge{
				FromUserID:   split.DebtorUserID,
				ToUserID:     payment.PayerID,
				AmountInBase: split.Amount.Mul(factor),
			})
		}
	}

	sort.Strings(result.ExcludedPaymentIDs)
	return result
}
