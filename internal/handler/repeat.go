package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createRepeatRequest struct {
	Numbers []int `json:"numbers" binding:"required"`
	Times   int   `json:"times" binding:"required"`
	Weeks   int   `json:"weeks" binding:"required"`
}

// CreateRepeat handles POST /api/players/:id/repeats.
// This week's board is debited and created immediately; the repeat then
// covers weeks-1 further draws.
func (h *Handler) CreateRepeat(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req createRepeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	repeat, err := h.repeats.Create(c.Request.Context(), playerID, req.Numbers, req.Times, req.Weeks)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"repeat": repeat})
}

// GetRepeats handles GET /api/players/:id/repeats.
func (h *Handler) GetRepeats(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}

	repeats, err := h.repeats.ListByPlayer(c.Request.Context(), playerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"repeats": repeats})
}

// StopRepeat handles DELETE /api/players/:id/repeats/:repeatId.
// Stopping an already-stopped repeat succeeds without effect.
func (h *Handler) StopRepeat(c *gin.Context) {
	playerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	repeatID, ok := pathID(c, "repeatId")
	if !ok {
		return
	}

	if err := h.repeats.Stop(c.Request.Context(), playerID, repeatID); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
