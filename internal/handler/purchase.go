package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lotto-ledger/internal/service"
)

type purchaseRequest struct {
	Boards []service.TicketRequest `json:"boards" binding:"required"`
}

// Purchase handles POST /api/players/:id/boards.
// The batch is all-or-nothing: either every board is created and the
// balance drops by the batch total, or nothing is persisted.
func (h *Handler) Purchase(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	boards, err := h.purchases.Purchase(c.Request.Context(), playerID, req.Boards)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"boards": boards})
}

// GetBoards handles GET /api/players/:id/boards.
func (h *Handler) GetBoards(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	boards, err := h.purchases.BoardsForPlayer(c.Request.Context(), playerID, h.history)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"boards": boards})
}

// GetPricing handles GET /api/pricing.
func (h *Handler) GetPricing(c *gin.Context) {
	table, err := h.purchases.PriceTable(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pricing": table})
}
