package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/middleware"
)

// balanceHandler serves derived balance and suggestion reads.
type balanceHandler struct {
	balanceService portssvc.BalanceSvcFacade
}

func newBalanceHandler(balanceService portssvc.BalanceSvcFacade) *balanceHandler {
	return &balanceHandler{balanceService: balanceService}
}

func registerBalanceRoutes(rg *gin.RouterGroup, balanceService portssvc.BalanceSvcFacade) {
	h := newBalanceHandler(balanceService)
	group := rg.Group("/groups/:groupID")
	{
		group.GET("/balances", h.getBalances)
		group.GET("/settlement-suggestions", h.getSettlementSuggestions)
	}
}

func (h *balanceHandler) getBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.balanceService.GetBalances(c.Request.Context(), groupID, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to compute balances")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *balanceHandler) getSettlementSuggestions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.balanceService.GetSettlementSuggestions(c.Request.Context(), groupID, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to compute settlement suggestions")
		return
	}

	c.JSON(http.StatusOK, resp)
}
