// Package handler exposes the ledger engine operations over HTTP.
// Authentication and authorization are the deployment's concern; the
// handlers only translate JSON requests into service calls and service
// errors into status codes.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"lotto-ledger/internal/service"
)

// Handler holds the service dependencies for the HTTP API.
type Handler struct {
	purchases *service.PurchaseService
	draws     *service.DrawService
	repeats   *service.RepeatService
	ledger    *service.LedgerService
	history   int
}

// New creates a new Handler.
func New(
	purchases *service.PurchaseService,
	draws *service.DrawService,
	repeats *service.RepeatService,
	ledger *service.LedgerService,
	historyLimit int,
) *Handler {
	return &Handler{
		purchases: purchases,
		draws:     draws,
		repeats:   repeats,
		ledger:    ledger,
		history:   historyLimit,
	}
}

// RegisterRoutes registers all application routes.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.GET("/pricing", h.GetPricing)

		api.POST("/players/:id/boards", h.Purchase)
		api.GET("/players/:id/boards", h.GetBoards)
		api.GET("/players/:id/balance", h.GetBalance)
		api.GET("/players/:id/ledger", h.GetLedger)
		api.POST("/players/:id/deposits", h.RequestDeposit)
		api.POST("/players/:id/repeats", h.CreateRepeat)
		api.GET("/players/:id/repeats", h.GetRepeats)
		api.DELETE("/players/:id/repeats/:repeatId", h.StopRepeat)

		api.POST("/draws", h.EnterWinningNumbers)
		api.GET("/draws", h.GetDrawHistory)
		api.GET("/draws/locked", h.IsWeekLocked)
		api.GET("/draws/:id/winners", h.GetWinners)
		api.POST("/draws/:id/resweep", h.Resweep)

		api.GET("/admin/deposits/pending", h.GetPendingDeposits)
		api.POST("/admin/deposits/:id/resolve", h.ResolveDeposit)
		api.POST("/admin/refunds", h.Refund)
		api.PUT("/admin/players/:id/active", h.SetPlayerActive)
	}
}

// pathID parses an int64 path parameter, replying 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	if ibe, ok := service.IsInsufficientBalance(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "insufficient balance",
			"balance":   ibe.Balance,
			"required":  ibe.Required,
			"shortfall": ibe.Shortfall,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidTicket),
		errors.Is(err, service.ErrInvalidMultiplier),
		errors.Is(err, service.ErrInvalidWeeks),
		errors.Is(err, service.ErrInvalidWinningNumbers),
		errors.Is(err, service.ErrInvalidWeekKey),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidDecision):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPlayerNotFound),
		errors.Is(err, service.ErrRepeatNotFound),
		errors.Is(err, service.ErrEntryNotFound),
		errors.Is(err, service.ErrBoardNotFound),
		errors.Is(err, service.ErrDrawNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrPlayerInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDrawAlreadyLocked),
		errors.Is(err, service.ErrWeekClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable, retry the request"})
	case errors.Is(err, service.ErrNoSuchPrice):
		// Operator misconfiguration: already logged loudly, keep the
		// response generic for the player.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "purchase is currently unavailable"})
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
