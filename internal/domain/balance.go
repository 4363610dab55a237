package domain

import "github.com/shopspring/decimal"

// BalanceDirection tells which way a netted pair balance points, from the
// perspective of the user the summary was computed for.
type BalanceDirection string

const (
	DirectionOwesYou BalanceDirection = "OWES_YOU"
	DirectionYouOwe  BalanceDirection = "YOU_OWE"
)

// DebtEdge is a directed, currency-normalized amount one user owes another,
// derived from a single split.
type DebtEdge struct {
	FromUserID   string
	ToUserID     string
	AmountInBase decimal.Decimal
}

// CounterpartyBalance is the netted balance against one counterparty.
// NetAmount is always positive; Direction carries the sign.
type CounterpartyBalance struct {
	CounterpartyID string
	NetAmount      decimal.Decimal
	Direction      BalanceDirection
}

// BalanceSummary is the derived balance view for one user in one trip,
// expressed in BaseCurrency. It is never persisted or mutated in place;
// each recomputation replaces it wholesale.
type BalanceSummary struct {
	TripID         string
	UserID         string
	BaseCurrency   string
	TotalOwedToYou decimal.Decimal
	TotalOwed      decimal.Decimal
	NetBalance     decimal.Decimal

	// Balances holds one row per counterparty with a nonzero net,
	// sorted by counterparty ID.
	Balances []CounterpartyBalance

	// Degraded is set when one or more payments had to be excluded
	// because no conversion rate was available for them.
	Degraded           bool
	ExcludedPaymentIDs []string

	// InconsistentPaymentIDs lists payments whose splits do not sum to
	// the payment amount. Those splits still count; the split records
	// are the source of truth for who owes what.
	InconsistentPaymentIDs []string
}
