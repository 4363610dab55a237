package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"ledger/internal/domain"
)

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of repository.PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment

	// Counters for verification
	ListCallCount int32

	// Error injection
	ListError error

	// ListStarted receives one value when a list call begins; ListGate,
	// when set, blocks the call until released. Both are optional and
	// exist for coalescing tests.
	ListStarted chan struct{}
	ListGate    chan struct{}
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment adds a payment to the mock repository.
func (m *MockPaymentRepository) AddPayment(payment domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := payment
	m.payments[p.ID] = &p
}

// RemovePayment deletes a payment.
func (m *MockPaymentRepository) RemovePayment(paymentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, paymentID)
}

// SetSettled toggles the settlement flag of a payment.
func (m *MockPaymentRepository) SetSettled(paymentID string, settled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.payments[paymentID]; ok {
		p.IsSettled = settled
	}
}

func (m *MockPaymentRepository) ListByTrip(ctx context.Context, tripID string) ([]domain.Payment, error) {
	atomic.AddInt32(&m.ListCallCount, 1)
	if m.ListStarted != nil {
		select {
		case m.ListStarted <- struct{}{}:
		default:
		}
	}
	if m.ListGate != nil {
		select {
		case <-m.ListGate:
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var payments []domain.Payment
	for _, p := range m.payments {
		if p.TripID == tripID {
			payments = append(payments, *p)
		}
	}
	sort.Slice(payments, func(i, j int) bool {
		if !payments[i].CreatedAt.Equal(payments[j].CreatedAt) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

// ──────────────────────────────────────────────
// MOCK SPLIT REPOSITORY
// ──────────────────────────────────────────────

// MockSplitRepository is a mock implementation of repository.SplitRepository.
type MockSplitRepository struct {
	mu     sync.RWMutex
	splits map[string]*domain.Split

	// Counters for verification
	ListCallCount int32

	// Error injection
	ListError error
}

// NewMockSplitRepository creates a new mock split repository.
func NewMockSplitRepository() *MockSplitRepository {
	return &MockSplitRepository{
		splits: make(map[string]*domain.Split),
	}
}

// AddSplit adds a split to the mock repository.
func (m *MockSplitRepository) AddSplit(split domain.Split) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := split
	m.splits[s.ID] = &s
}

// RemoveByPayment deletes all splits of a payment (cascade delete).
func (m *MockSplitRepository) RemoveByPayment(paymentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.splits {
		if s.PaymentID == paymentID {
			delete(m.splits, id)
		}
	}
}

// SetConfirmationStatus updates a split's confirmation status.
func (m *MockSplitRepository) SetConfirmationStatus(splitID string, status domain.ConfirmationStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.splits[splitID]; ok {
		s.ConfirmationStatus = status
	}
}

func (m *MockSplitRepository) ListByPayments(ctx context.Context, paymentIDs []string) ([]domain.Split, error) {
	atomic.AddInt32(&m.ListCallCount, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.ListError != nil {
		return nil, m.ListError
	}

	wanted := make(map[string]bool, len(paymentIDs))
	for _, id := range paymentIDs {
		wanted[id] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var splits []domain.Split
	for _, s := range m.splits {
		if wanted[s.PaymentID] {
			splits = append(splits, *s)
		}
	}
	sort.Slice(splits, func(i, j int) bool {
		if splits[i].PaymentID != splits[j].PaymentID {
			return splits[i].PaymentID < splits[j].PaymentID
		}
		return splits[i].ID < splits[j].ID
	})
	return splits, nil
}
