package tests

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/repository"
	"ledger/internal/service"
)

// ──────────────────────────────────────────────
// 1. BALANCE SUMMARY SCENARIOS
// ──────────────────────────────────────────────

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func query(tripID, userID string) service.BalanceQuery {
	return service.BalanceQuery{TripID: tripID, UserID: userID, BaseCurrency: "USD"}
}

func netBalance(t *testing.T, f *ledgerFixture, tripID, userID string) decimal.Decimal {
	t.Helper()
	summary, err := f.ledger.GetBalanceSummary(context.Background(), query(tripID, userID))
	if err != nil {
		t.Fatalf("unexpected error for %s: %v", userID, err)
	}
	return summary.NetBalance
}

func TestBalance_EqualThreeWaySplit(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	// P pays 300, split into three shares of 100 for P, B and C.
	f.addPayment("pay-1", "trip-1", "P", "300", "USD", t0, map[string]string{
		"P": "100", "B": "100", "C": "100",
	})

	summary, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "P"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.NetBalance.Equal(mustDecimal("200")) {
		t.Errorf("expected net balance +200 for P, got %s", summary.NetBalance)
	}
	if !summary.TotalOwedToYou.Equal(mustDecimal("200")) {
		t.Errorf("expected 200 owed to P, got %s", summary.TotalOwedToYou)
	}
	if !summary.TotalOwed.IsZero() {
		t.Errorf("expected P to owe nothing, got %s", summary.TotalOwed)
	}

	if len(summary.Balances) != 2 {
		t.Fatalf("expected 2 counterparty rows, got %d", len(summary.Balances))
	}
	for i, counterparty := range []string{"B", "C"} {
		row := summary.Balances[i]
		if row.CounterpartyID != counterparty {
			t.Errorf("row %d: expected counterparty %s, got %s", i, counterparty, row.CounterpartyID)
		}
		if !row.NetAmount.Equal(mustDecimal("100")) {
			t.Errorf("row %d: expected 100, got %s", i, row.NetAmount)
		}
		if row.Direction != domain.DirectionOwesYou {
			t.Errorf("row %d: expected OWES_YOU, got %s", i, row.Direction)
		}
	}

	for _, debtor := range []string{"B", "C"} {
		if net := netBalance(t, f, "trip-1", debtor); !net.Equal(mustDecimal("-100")) {
			t.Errorf("expected net balance -100 for %s, got %s", debtor, net)
		}
	}
}

func TestBalance_ChainedPayments(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.addPayment("pay-1", "trip-1", "P", "300", "USD", t0, map[string]string{
		"P": "100", "B": "100", "C": "100",
	})
	// B then pays 150, split 75/75 between B and C.
	f.addPayment("pay-2", "trip-1", "B", "150", "USD", t0.Add(time.Hour), map[string]string{
		"B": "75", "C": "75",
	})

	// P's position is untouched by the second payment.
	summaryP, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "P"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summaryP.NetBalance.Equal(mustDecimal("200")) {
		t.Errorf("expected net balance +200 for P, got %s", summaryP.NetBalance)
	}

	// B is owed 75 by C but still owes P 100.
	summaryB, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summaryB.NetBalance.Equal(mustDecimal("-25")) {
		t.Errorf("expected net balance -25 for B, got %s", summaryB.NetBalance)
	}
	expectedB := []domain.CounterpartyBalance{
		{CounterpartyID: "C", NetAmount: mustDecimal("75"), Direction: domain.DirectionOwesYou},
		{CounterpartyID: "P", NetAmount: mustDecimal("100"), Direction: domain.DirectionYouOwe},
	}
	if len(summaryB.Balances) != len(expectedB) {
		t.Fatalf("expected %d rows for B, got %d", len(expectedB), len(summaryB.Balances))
	}
	for i, want := range expectedB {
		got := summaryB.Balances[i]
		if got.CounterpartyID != want.CounterpartyID || !got.NetAmount.Equal(want.NetAmount) || got.Direction != want.Direction {
			t.Errorf("B row %d: expected %+v, got %+v", i, want, got)
		}
	}

	// Zero-sum law across all three participants.
	total := decimal.Zero
	for _, user := range []string{"P", "B", "C"} {
		total = total.Add(netBalance(t, f, "trip-1", user))
	}
	if !total.IsZero() {
		t.Errorf("expected participants' net balances to sum to zero, got %s", total)
	}
}

func TestBalance_EmptyTrip(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()

	summary, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-empty", "U"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.TotalOwed.IsZero() || !summary.TotalOwedToYou.IsZero() || !summary.NetBalance.IsZero() {
		t.Errorf("expected all totals zero, got owed=%s owedToYou=%s net=%s",
			summary.TotalOwed, summary.TotalOwedToYou, summary.NetBalance)
	}
	if len(summary.Balances) != 0 {
		t.Errorf("expected empty breakdown, got %d rows", len(summary.Balances))
	}
	if summary.Degraded {
		t.Error("empty trip must not be degraded")
	}
}

func TestBalance_MissingConversionRate(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.addPayment("pay-usd", "trip-1", "A", "100", "USD", t0, map[string]string{"B": "100"})
	// No XXX->USD rate is registered.
	f.addPayment("pay-xxx", "trip-1", "A", "50", "XXX", t0, map[string]string{"B": "50"})

	summary, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !summary.Degraded {
		t.Error("expected degraded summary")
	}
	if len(summary.ExcludedPaymentIDs) != 1 || summary.ExcludedPaymentIDs[0] != "pay-xxx" {
		t.Errorf("expected [pay-xxx] excluded, got %v", summary.ExcludedPaymentIDs)
	}
	// The convertible payment still nets correctly.
	if !summary.NetBalance.Equal(mustDecimal("100")) {
		t.Errorf("expected net balance +100 for A, got %s", summary.NetBalance)
	}
}

func TestBalance_SettledPaymentContributesNothing(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.addPayment("pay-1", "trip-1", "A", "100", "USD", t0, map[string]string{"B": "100"})
	f.splits.SetConfirmationStatus("pay-1/B", domain.ConfirmationConfirmed)
	f.payments.SetSettled("pay-1", true)

	for _, user := range []string{"A", "B"} {
		if net := netBalance(t, f, "trip-1", user); !net.IsZero() {
			t.Errorf("expected zero net balance for %s, got %s", user, net)
		}
	}
}

func TestBalance_MultiCurrencyConversion(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.rates.Set("EUR", "USD", mustDecimal("1.25"))
	f.addPayment("pay-eur", "trip-1", "A", "80", "EUR", t0, map[string]string{"B": "80"})

	summary, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 80 EUR * 1.25 = 100 USD owed by B.
	if !summary.TotalOwed.Equal(mustDecimal("100")) {
		t.Errorf("expected B to owe 100 USD, got %s", summary.TotalOwed)
	}
}

// ──────────────────────────────────────────────
// 2. FILTER RULES ACROSS THE FULL STACK
// ──────────────────────────────────────────────

func TestBalance_DenialRemovesExactlyThatSplit(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.addPayment("pay-1", "trip-1", "A", "200", "USD", t0, map[string]string{
		"B": "100", "C": "100",
	})
	f.splits.SetConfirmationStatus("pay-1/B", domain.ConfirmationDenied)

	summary, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only C's share remains.
	if !summary.TotalOwedToYou.Equal(mustDecimal("100")) {
		t.Errorf("expected 100 owed to A, got %s", summary.TotalOwedToYou)
	}
	if len(summary.Balances) != 1 || summary.Balances[0].CounterpartyID != "C" {
		t.Errorf("expected a single row against C, got %+v", summary.Balances)
	}
	if net := netBalance(t, f, "trip-1", "B"); !net.IsZero() {
		t.Errorf("expected zero net balance for B after denial, got %s", net)
	}
}

func TestBalance_PendingAndConfirmedCountEqually(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.addPayment("pay-1", "trip-1", "A", "100", "USD", t0, map[string]string{"B": "100"})

	pending, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.splits.SetConfirmationStatus("pay-1/B", domain.ConfirmationConfirmed)
	f.ledger.OnSplitChanged("trip-1")

	confirmed, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "B"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(pending, confirmed) {
		t.Errorf("pending and confirmed summaries differ: %+v vs %+v", pending, confirmed)
	}
}

func TestBalance_SplitSumMismatchReportedNotBlocked(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	// Splits sum to 60, payment claims 100. The splits win.
	f.addPayment("pay-1", "trip-1", "A", "100", "USD", t0, map[string]string{
		"B": "30", "C": "30",
	})

	summary, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "A"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(summary.InconsistentPaymentIDs) != 1 || summary.InconsistentPaymentIDs[0] != "pay-1" {
		t.Errorf("expected [pay-1] reported inconsistent, got %v", summary.InconsistentPaymentIDs)
	}
	if summary.Degraded {
		t.Error("split-sum mismatch must not degrade the summary")
	}
	if !summary.TotalOwedToYou.Equal(mustDecimal("60")) {
		t.Errorf("expected netting over the splits as given (60), got %s", summary.TotalOwedToYou)
	}
}

// ──────────────────────────────────────────────
// 3. ERROR PROPAGATION
// ──────────────────────────────────────────────

func TestBalance_StoreUnavailableIsRetryable(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.payments.ListError = repository.ErrUnavailable

	_, err := f.ledger.GetBalanceSummary(context.Background(), query("trip-1", "A"))
	if !errors.Is(err, service.ErrRecordStoreUnavailable) {
		t.Errorf("expected ErrRecordStoreUnavailable, got %v", err)
	}
}

func TestBalance_InvalidArguments(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	ctx := context.Background()

	cases := []struct {
		name  string
		query service.BalanceQuery
		want  error
	}{
		{"empty trip", service.BalanceQuery{UserID: "A", BaseCurrency: "USD"}, service.ErrInvalidTripID},
		{"empty user", service.BalanceQuery{TripID: "t", BaseCurrency: "USD"}, service.ErrInvalidUserID},
		{"empty currency", service.BalanceQuery{TripID: "t", UserID: "A"}, service.ErrInvalidCurrency},
		{"bad currency", service.BalanceQuery{TripID: "t", UserID: "A", BaseCurrency: "US1"}, service.ErrInvalidCurrency},
	}
	for _, tc := range cases {
		if _, err := f.ledger.GetBalanceSummary(ctx, tc.query); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

// ──────────────────────────────────────────────
// 4. ZERO-SUM LAW UNDER MIXED CURRENCIES
// ──────────────────────────────────────────────

func TestBalance_ZeroSumLawMixedCurrencies(t *testing.T) {
	t.Parallel()

	f := newLedgerFixture()
	f.rates.Set("EUR", "USD", mustDecimal("1.1"))
	f.rates.Set("GBP", "USD", mustDecimal("1.3"))

	f.addPayment("pay-1", "trip-1", "A", "90", "EUR", t0, map[string]string{
		"A": "30", "B": "30", "C": "30",
	})
	f.addPayment("pay-2", "trip-1", "B", "100", "GBP", t0.Add(time.Hour), map[string]string{
		"A": "33.33", "B": "33.33", "C": "33.34",
	})
	f.addPayment("pay-3", "trip-1", "C", "40", "USD", t0.Add(2*time.Hour), map[string]string{
		"A": "20", "D": "20",
	})

	total := decimal.Zero
	for _, user := range []string{"A", "B", "C", "D"} {
		total = total.Add(netBalance(t, f, "trip-1", user))
	}
	if total.Abs().GreaterThan(mustDecimal("0.01")) {
		t.Errorf("zero-sum law violated: participants sum to %s", total)
	}
}
