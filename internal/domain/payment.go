package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConfirmationStatus represents a debtor's acknowledgment state for a split.
type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "PENDING"
	ConfirmationConfirmed ConfirmationStatus = "CONFIRMED"
	ConfirmationDenied    ConfirmationStatus = "DENIED"
)

// Payment represents one shared expense fronted by a single payer.
// Amount and Currency are immutable after creation; only the settlement
// fields are ever toggled by the surrounding application.
type Payment struct {
	ID        string
	TripID    string
	PayerID   string
	Amount    decimal.Decimal
	Currency  string
	CreatedAt time.Time
	IsSettled bool
	SettledAt *time.Time
}

// Split is one debtor's allocated share of a payment, denominated in the
// payment's currency. A split transitions PENDING -> CONFIRMED or
// PENDING -> DENIED at most once and is never reopened.
type Split struct {
	ID                 string
	PaymentID          string
	DebtorUserID       string
	Amount             decimal.Decimal
	ConfirmationStatus ConfirmationStatus
	ConfirmedBy        string
	ConfirmedAt        *time.Time
}
