package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type enterDrawRequest struct {
	Year           int   `json:"year" binding:"required"`
	Week           int   `json:"week" binding:"required"`
	WinningNumbers []int `json:"winning_numbers" binding:"required"`
}

// EnterWinningNumbers handles POST /api/draws.
// Exactly one caller can lock a (year, week); later callers get 409.
func (h *Handler) EnterWinningNumbers(c *gin.Context) {
	var req enterDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	draw, err := h.draws.EnterWinningNumbers(c.Request.Context(), req.Year, req.Week, req.WinningNumbers)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"draw": draw})
}

// GetDrawHistory handles GET /api/draws.
func (h *Handler) GetDrawHistory(c *gin.Context) {
	draws, err := h.draws.History(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"draws": draws})
}

// IsWeekLocked handles GET /api/draws/locked?year=YYYY&week=WW.
func (h *Handler) IsWeekLocked(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	week, err := strconv.Atoi(c.Query("week"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid week"})
		return
	}

	locked, err := h.draws.IsWeekLocked(c.Request.Context(), year, week)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"year": year, "week": week, "locked": locked})
}

// GetWinners handles GET /api/draws/:id/winners.
func (h *Handler) GetWinners(c *gin.Context) {
	drawID, ok := pathID(c, "id")
	if !ok {
		return
	}

	boards, err := h.draws.Winners(c.Request.Context(), drawID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"winners": boards})
}

// Resweep handles POST /api/draws/:id/resweep. It re-runs repeat
// materialization and winner evaluation for an already locked draw;
// both steps are idempotent.
func (h *Handler) Resweep(c *gin.Context) {
	drawID, ok := pathID(c, "id")
	if !ok {
		return
	}

	report, err := h.draws.Resweep(c.Request.Context(), drawID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}
