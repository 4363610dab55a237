package tests

import (
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/rates"
	"ledger/internal/service"
)

// ledgerFixture bundles the mock collaborators around a LedgerService.
type ledgerFixture struct {
	payments *MockPaymentRepository
	splits   *MockSplitRepository
	rates    *rates.StaticProvider
	ledger   *service.LedgerService
}

func newLedgerFixture() *ledgerFixture {
	paymentRepo := NewMockPaymentRepository()
	splitRepo := NewMockSplitRepository()
	rateProvider := rates.NewStaticProvider()

	return &ledgerFixture{
		payments: paymentRepo,
		splits:   splitRepo,
		rates:    rateProvider,
		ledger:   service.NewLedgerService(paymentRepo, splitRepo, rateProvider, time.Second),
	}
}

// addPayment records a payment and one pending split per debtor. Split IDs
// are derived as "<paymentID>/<debtorID>" so tests can address them.
func (f *ledgerFixture) addPayment(id, tripID, payerID, amount, currency string, createdAt time.Time, shares map[string]string) {
	f.payments.AddPayment(domain.Payment{
		ID:        id,
		TripID:    tripID,
		PayerID:   payerID,
		Amount:    mustDecimal(amount),
		Currency:  currency,
		CreatedAt: createdAt,
	})
	for debtor, share := range shares {
		f.splits.AddSplit(domain.Split{
			ID:                 id + "/" + debtor,
			PaymentID:          id,
			DebtorUserID:       debtor,
			Amount:             mustDecimal(share),
			ConfirmationStatus: domain.ConfirmationPending,
		})
	}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
