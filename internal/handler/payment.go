package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ledger/internal/service"
)

// PaymentHandler handles read-only HTTP requests for trip payments.
type PaymentHandler struct {
	ledgerService *service.LedgerService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ledgerService *service.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledgerService: ledgerService}
}

// SplitResponse is one debtor's share of a payment.
type SplitResponse struct {
	ID                 string `json:"id"`
	DebtorUserID       string `json:"debtor_user_id"`
	Amount             string `json:"amount"`
	ConfirmationStatus string `json:"confirmation_status"`
	ConfirmedBy        string `json:"confirmed_by,omitempty"`
	ConfirmedAt        string `json:"confirmed_at,omitempty"`
}

// PaymentResponse is one payment with its splits.
type PaymentResponse struct {
	ID        string          `json:"id"`
	TripID    string          `json:"trip_id"`
	PayerID   string          `json:"payer_id"`
	Amount    string          `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt string          `json:"created_at"`
	IsSettled bool            `json:"is_settled"`
	SettledAt string          `json:"settled_at,omitempty"`
	Splits    []SplitResponse `json:"splits"`
}

// ListPaymentsResponse is the HTTP response for the trip ledger listing.
type ListPaymentsResponse struct {
	Payments []PaymentResponse `json:"payments"`
}

// ListTripPayments handles GET /v1/trips/:id/payments
func (h *PaymentHandler) ListTripPayments(c *gin.Context) {
	entries, err := h.ledgerService.ListTripPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	payments := make([]PaymentResponse, len(entries))
	for i, entry := range entries {
		p := entry.Payment
		resp := PaymentResponse{
			ID:        p.ID,
			TripID:    p.TripID,
			PayerID:   p.PayerID,
			Amount:    p.Amount.StringFixed(2),
			Currency:  p.Currency,
			CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
			IsSettled: p.IsSettled,
			Splits:    make([]SplitResponse, len(entry.Splits)),
		}
		if p.SettledAt != nil {
			resp.SettledAt = p.SettledAt.UTC().Format(time.RFC3339)
		}
		for j, s := range entry.Splits {
			sr := SplitResponse{
				ID:                 s.ID,
				DebtorUserID:       s.DebtorUserID,
				Amount:             s.Amount.StringFixed(2),
				ConfirmationStatus: string(s.ConfirmationStatus),
				ConfirmedBy:        s.ConfirmedBy,
			}
			if s.ConfirmedAt != nil {
				sr.ConfirmedAt = s.ConfirmedAt.UTC().Format(time.RFC3339)
			}
			resp.Splits[j] = sr
		}
		payments[i] = resp
	}

	respondJSON(c, http.StatusOK, ListPaymentsResponse{Payments: payments})
}
