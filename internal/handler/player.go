package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetPlayerActive handles PUT /api/admin/players/:id/active.
// A deactivated player cannot purchase boards or create repeats; their
// balance, boards and ledger history stay intact.
func (h *Handler) SetPlayerActive(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.ledger.SetPlayerActive(c.Request.Context(), playerID, *req.Active); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"player_id": playerID, "active": *req.Active})
}
