package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"ledger/internal/domain"
	"ledger/internal/metrics"
	"ledger/internal/rates"
	"ledger/internal/repository"
)

// defaultStoreTimeout bounds a single record store read when no timeout is
// configured. No engine operation may block indefinitely.
const defaultStoreTimeout = 5 * time.Second

// LedgerService computes balance summaries for trips. It is stateless per
// invocation except for the snapshot cache, which is the only shared
// mutable resource. Each trip's ledger is independent; there is no
// cross-trip coordination.
type LedgerService struct {
	paymentRepo  repository.PaymentRepository
	splitRepo    repository.SplitRepository
	rateProvider rates.Provider
	cache        *snapshotCache
	storeTimeout time.Duration
}

// NewLedgerService creates a LedgerService. A non-positive storeTimeout
// falls back to the default.
func NewLedgerService(paymentRepo repository.PaymentRepository, splitRepo repository.SplitRepository, rateProvider rates.Provider, storeTimeout time.Duration) *LedgerService {
	if storeTimeout <= 0 {
		storeTimeout = defaultStoreTimeout
	}
	return &LedgerService{
		paymentRepo:  paymentRepo,
		splitRepo:    splitRepo,
		rateProvider: rateProvider,
		cache:        newSnapshotCache(),
		storeTimeout: storeTimeout,
	}
}

// BalanceQuery contains the parameters for a balance summary read.
type BalanceQuery struct {
	TripID       string
	UserID       string
	BaseCurrency string

	// BypassCache forces a fresh recomputation. The result must be
	// identical to a cached read for the same snapshot.
	BypassCache bool
}

// GetBalanceSummary returns the netted balance view for one user of a trip
// in the requested base currency.
func (s *LedgerService) GetBalanceSummary(ctx context.Context, q BalanceQuery) (*domain.BalanceSummary, error) {
	if q.TripID == "" {
		return nil, ErrInvalidTripID
	}
	if q.UserID == "" {
		return nil, ErrInvalidUserID
	}
	base, err := normalizeCurrency(q.BaseCurrency)
	if err != nil {
		return nil, err
	}

	key := snapshotKey{tripID: q.TripID, baseCurrency: base}

	if !q.BypassCache {
		if snap := s.cache.get(key); snap != nil {
			metrics.CacheHits.Inc()
			return s.buildSummary(snap, q.TripID, q.UserID, base), nil
		}
	}
	snap, err := s.cache.recompute(key, func() (*snapshot, error) {
		// Re-check under the flight: a reader that missed just before a
		// concurrent flight stored its result must not trigger a second
		// recomputation.
		if !q.BypassCache {
			if snap := s.cache.get(key); snap != nil {
				return snap, nil
			}
		}
		metrics.CacheMisses.Inc()

		// The computation is shared by every coalesced waiter, so it must
		// not die with the caller that happened to start it. loadRecords
		// still bounds the store reads.
		gen := s.cache.generation(q.TripID)
		snap, err := s.computeSnapshot(context.WithoutCancel(ctx), q.TripID, base)
		if err != nil {
			return nil, err
		}
		s.cache.putIfCurrent(key, gen, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}

	return s.buildSummary(snap, q.TripID, q.UserID, base), nil
}

// PaymentWithSplits pairs a payment with its child splits for the trip
// ledger listing.
type PaymentWithSplits struct {
	Payment domain.Payment
	Splits  []domain.Split
}

// ListTripPayments returns every payment for a trip with its splits, in
// stable order. Read-only; the engine never writes records.
func (s *LedgerService) ListTripPayments(ctx context.Context, tripID string) ([]PaymentWithSplits, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	payments, splitsByPayment, err := s.loadRecords(ctx, tripID)
	if err != nil {
		return nil, err
	}

	result := make([]PaymentWithSplits, len(payments))
	for i, p := range payments {
		result[i] = PaymentWithSplits{Payment: p, Splits: splitsByPayment[p.ID]}
	}
	return result, nil
}

// OnPaymentChanged reacts to a payment create/update/delete notification.
func (s *LedgerService) OnPaymentChanged(tripID string) {
	s.invalidate(tripID, "payment")
}

// OnSplitChanged reacts to a split create/update/delete notification.
func (s *LedgerService) OnSplitChanged(tripID string) {
	s.invalidate(tripID, "split")
}

// InvalidateTrip drops all cached snapshots for a trip. Idempotent.
func (s *LedgerService) InvalidateTrip(tripID string) {
	s.invalidate(tripID, "manual")
}

func (s *LedgerService) invalidate(tripID, trigger string) {
	if tripID == "" {
		return
	}
	s.cache.invalidateTrip(tripID)
	metrics.Invalidations.WithLabelValues(trigger).Inc()
	slog.Debug("invalidated balance cache", "trip_id", tripID, "trigger", trigger)
}

// computeSnapshot performs one full recomputation: load, filter+normalize,
// net. The split-sum integrity check runs here; a diverging payment is
// reported but its splits still count, because the split records are the
// source of truth for who owes what.
func (s *LedgerService) computeSnapshot(ctx context.Context, tripID, baseCurrency string) (*snapshot, error) {
	timer := prometheus.NewTimer(metrics.RecomputeDuration)
	defer timer.ObserveDuration()

	payments, splitsByPayment, err := s.loadRecords(ctx, tripID)
	if err != nil {
		return nil, err
	}

	inconsistent := checkSplitSums(tripID, payments, splitsByPayment)

	normalized := normalizeEdges(ctx, payments, splitsByPayment, baseCurrency, s.rateProvider)
	if len(normalized.ExcludedPaymentIDs) > 0 {
		metrics.DegradedSummaries.Inc()
	}

	return &snapshot{
		graph:                  buildGraph(normalized.Edges),
		excludedPaymentIDs:     normalized.ExcludedPaymentIDs,
		inconsistentPaymentIDs: inconsistent,
		computedAt:             time.Now().UTC(),
	}, nil
}

// loadRecords reads a trip's payments and splits under the configured
// store timeout.
func (s *LedgerService) loadRecords(ctx context.Context, tripID string) ([]domain.Payment, map[string][]domain.Split, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	payments, err := s.paymentRepo.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, nil, classifyStoreErr("loading payments", err)
	}

	paymentIDs := make([]string, len(payments))
	for i, p := range payments {
		paymentIDs[i] = p.ID
	}

	splits, err := s.splitRepo.ListByPayments(ctx, paymentIDs)
	if err != nil {
		return nil, nil, classifyStoreErr("loading splits", err)
	}

	splitsByPayment := make(map[string][]domain.Split, len(payments))
	for _, split := range splits {
		splitsByPayment[split.PaymentID] = append(splitsByPayment[split.PaymentID], split)
	}

	return payments, splitsByPayment, nil
}

// buildSummary derives one user's view from a shared snapshot.
func (s *LedgerService) buildSummary(snap *snapshot, tripID, userID, baseCurrency string) *domain.BalanceSummary {
	owedToYou, owed, balances := snap.graph.summaryFor(userID)

	summary := &domain.BalanceSummary{
		TripID:         tripID,
		UserID:         userID,
		BaseCurrency:   baseCurrency,
		TotalOwedToYou: owedToYou,
		TotalOwed:      owed,
		NetBalance:     owedToYou.Sub(owed),
		Balances:       balances,
		Degraded:       snap.degraded(),
	}
	if len(snap.excludedPaymentIDs) > 0 {
		summary.ExcludedPaymentIDs = append([]string(nil), snap.excludedPaymentIDs...)
	}
	if len(snap.inconsistentPaymentIDs) > 0 {
		summary.InconsistentPaymentIDs = append([]string(nil), snap.inconsistentPaymentIDs...)
	}
	return summary
}

// checkSplitSums flags payments whose splits diverge from the payment
// amount beyond tolerance. Settled payments are skipped: they no longer
// contribute and their history is not this engine's to police.
func checkSplitSums(tripID string, payments []domain.Payment, splitsByPayment map[string][]domain.Split) []string {
	var inconsistent []string
	for _, payment := range payments {
		if payment.IsSettled {
			continue
		}
		splits := splitsByPayment[payment.ID]
		if len(splits) == 0 {
			continue
		}

		sum := decimal.Zero
		for _, split := range splits {
			sum = sum.Add(split.Amount)
		}
		diff := sum.Sub(payment.Amount).Abs()
		if diff.GreaterThan(tolerance) {
			inconsistent = append(inconsistent, payment.ID)
			metrics.SplitSumMismatches.Inc()
			slog.Warn("splits do not sum to payment amount",
				"trip_id", tripID,
				"payment_id", payment.ID,
				"payment_amount", payment.Amount.String(),
				"split_sum", sum.String(),
			)
		}
	}
	sort.Strings(inconsistent)
	return inconsistent
}

func classifyStoreErr(op string, err error) error {
	if errors.Is(err, repository.ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, ErrRecordStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}
