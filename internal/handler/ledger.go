package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type depositRequest struct {
	Amount       int64  `json:"amount" binding:"required"`
	MobilePayRef string `json:"mobile_pay_ref"`
}

// RequestDeposit handles POST /api/players/:id/deposits.
// The deposit is recorded pending; the balance changes only when an
// admin approves it.
func (h *Handler) RequestDeposit(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ledger.RequestDeposit(c.Request.Context(), playerID, req.Amount, req.MobilePayRef)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// GetBalance handles GET /api/players/:id/balance.
// The value is derived from the ledger: the sum of approved entries.
func (h *Handler) GetBalance(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), playerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"player_id": playerID, "balance": balance})
}

// GetLedger handles GET /api/players/:id/ledger.
func (h *Handler) GetLedger(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	entries, err := h.ledger.History(c.Request.Context(), playerID, h.history)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetPendingDeposits handles GET /api/admin/deposits/pending.
func (h *Handler) GetPendingDeposits(c *gin.Context) {
	entries, err := h.ledger.PendingDeposits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type resolveRequest struct {
	Decision string `json:"decision" binding:"required"`
	AdminID  int64  `json:"admin_id" binding:"required"`
}

// ResolveDeposit handles POST /api/admin/deposits/:id/resolve.
// Resolving an entry that has already been resolved is a no-op and
// returns the entry unchanged.
func (h *Handler) ResolveDeposit(c *gin.Context) {
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ledger.ResolveDeposit(c.Request.Context(), entryID, req.Decision, req.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

type refundRequest struct {
	PlayerID int64 `json:"player_id" binding:"required"`
	BoardID  int64 `json:"board_id" binding:"required"`
	Amount   int64 `json:"amount" binding:"required"`
	AdminID  int64 `json:"admin_id" binding:"required"`
}

// Refund handles POST /api/admin/refunds.
func (h *Handler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.ledger.Refund(c.Request.Context(), req.PlayerID, req.BoardID, req.Amount, req.AdminID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}
