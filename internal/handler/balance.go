package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ledger/internal/domain"
	"ledger/internal/service"
)

// BalanceHandler handles HTTP requests for balance summaries.
type BalanceHandler struct {
	ledgerService   *service.LedgerService
	defaultCurrency string
}

// NewBalanceHandler creates a new BalanceHandler. defaultCurrency is used
// when a request does not specify one.
func NewBalanceHandler(ledgerService *service.LedgerService, defaultCurrency string) *BalanceHandler {
	return &BalanceHandler{ledgerService: ledgerService, defaultCurrency: defaultCurrency}
}

// CounterpartyBalanceResponse is one row of the per-counterparty breakdown.
type CounterpartyBalanceResponse struct {
	CounterpartyID string `json:"counterparty_id"`
	NetAmount      string `json:"net_amount"`
	Direction      string `json:"direction"`
}

// BalanceSummaryResponse is the HTTP response for a balance summary.
// Amounts are fixed-point strings; JSON numbers would reintroduce the
// float imprecision the engine exists to avoid.
type BalanceSummaryResponse struct {
	TripID                 string                        `json:"trip_id"`
	UserID                 string                        `json:"user_id"`
	BaseCurrency           string                        `json:"base_currency"`
	TotalOwedToYou         string                        `json:"total_owed_to_you"`
	TotalOwed              string                        `json:"total_owed"`
	NetBalance             string                        `json:"net_balance"`
	Balances               []CounterpartyBalanceResponse `json:"balances"`
	Degraded               bool                          `json:"degraded"`
	ExcludedPaymentIDs     []string                      `json:"excluded_payment_ids,omitempty"`
	InconsistentPaymentIDs []string                      `json:"inconsistent_payment_ids,omitempty"`
}

// GetBalanceSummary handles GET /v1/trips/:id/balances/:userId
func (h *BalanceHandler) GetBalanceSummary(c *gin.Context) {
	query := service.BalanceQuery{
		TripID:       c.Param("id"),
		UserID:       c.Param("userId"),
		BaseCurrency: c.DefaultQuery("currency", h.defaultCurrency),
		BypassCache:  c.Query("refresh") == "true",
	}

	summary, err := h.ledgerService.GetBalanceSummary(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toBalanceSummaryResponse(summary))
}

// InvalidateTrip handles POST /v1/trips/:id/invalidate
//
// Operational fallback for the change feed: re-invalidating is always
// safe, so this endpoint needs no idempotency bookkeeping.
func (h *BalanceHandler) InvalidateTrip(c *gin.Context) {
	tripID := c.Param("id")
	if tripID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "trip id is required"})
		return
	}

	h.ledgerService.InvalidateTrip(tripID)
	c.Status(http.StatusNoContent)
}

func toBalanceSummaryResponse(summary *domain.BalanceSummary) BalanceSummaryResponse {
	balances := make([]CounterpartyBalanceResponse, len(summary.Balances))
	for i, b := range summary.Balances {
		balances[i] = CounterpartyBalanceResponse{
			CounterpartyID: b.CounterpartyID,
			NetAmount:      b.NetAmount.StringFixed(2),
			Direction:      string(b.Direction),
		}
	}

	return BalanceSummaryResponse{
		TripID:                 summary.TripID,
		UserID:                 summary.UserID,
		BaseCurrency:           summary.BaseCurrency,
		TotalOwedToYou:         summary.TotalOwedToYou.StringFixed(2),
		TotalOwed:              summary.TotalOwed.StringFixed(2),
		NetBalance:             summary.NetBalance.StringFixed(2),
		Balances:               balances,
		Degraded:               summary.Degraded,
		ExcludedPaymentIDs:     summary.ExcludedPaymentIDs,
		InconsistentPaymentIDs: summary.InconsistentPaymentIDs,
	}
}
