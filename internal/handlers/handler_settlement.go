package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/dto"
	"github.com/triptally/triptally_backend/internal/middleware"
)

// settlementHandler handles HTTP requests for settlement records.
type settlementHandler struct {
	settlementService portssvc.SettlementSvcFacade
}

func newSettlementHandler(settlementService portssvc.SettlementSvcFacade) *settlementHandler {
	return &settlementHandler{settlementService: settlementService}
}

func registerSettlementRoutes(rg *gin.RouterGroup, settlementService portssvc.SettlementSvcFacade) {
	h := newSettlementHandler(settlementService)
	settlements := rg.Group("/groups/:groupID/settlements")
	{
		settlements.POST("", h.recordSettlement)
		settlements.GET("", h.listSettlements)
	}
	rg.POST("/settlements/:settlementID/confirm", h.confirmSettlement)
}

func (h *settlementHandler) recordSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	var req dto.RecordSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for recordSettlement", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	record, err := h.settlementService.RecordSettlement(
		c.Request.Context(), groupID, req, c.GetHeader(idempotencyKeyHeader), participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to record settlement")
		return
	}

	logger.Info("Settlement recorded", slog.String("settlement_id", record.SettlementID))
	c.JSON(http.StatusCreated, dto.ToSettlementResponse(record))
}

func (h *settlementHandler) confirmSettlement(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	settlementID := c.Param("settlementID")

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	record, err := h.settlementService.ConfirmSettlement(c.Request.Context(), settlementID, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to confirm settlement")
		return
	}

	logger.Info("Settlement confirmation applied",
		slog.String("settlement_id", settlementID),
		slog.String("status", string(record.Status)))
	c.JSON(http.StatusOK, dto.ToSettlementResponse(record))
}

func (h *settlementHandler) listSettlements(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	records, err := h.settlementService.ListSettlements(c.Request.Context(), groupID, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list settlements")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlements": dto.ToSettlementResponses(records)})
}
