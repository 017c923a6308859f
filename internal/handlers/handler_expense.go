package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/triptally/triptally_backend/internal/apperrors"
	portssvc "github.com/triptally/triptally_backend/internal/core/ports/services"
	"github.com/triptally/triptally_backend/internal/dto"
	"github.com/triptally/triptally_backend/internal/middleware"
)

const idempotencyKeyHeader = "Idempotency-Key"

// expenseHandler handles HTTP requests for the expense ledger.
type expenseHandler struct {
	expenseService portssvc.ExpenseSvcFacade
}

func newExpenseHandler(expenseService portssvc.ExpenseSvcFacade) *expenseHandler {
	return &expenseHandler{expenseService: expenseService}
}

// registerExpenseRoutes mounts the expense ledger under a group scope.
func registerExpenseRoutes(rg *gin.RouterGroup, expenseService portssvc.ExpenseSvcFacade) {
	h := newExpenseHandler(expenseService)
	expenses := rg.Group("/groups/:groupID/expenses")
	{
		expenses.POST("", h.createExpense)
		expenses.GET("", h.listExpenses)
		expenses.GET("/:expenseID", h.getExpense)
		expenses.PATCH("/:expenseID", h.updateExpense)
		expenses.POST("/:expenseID/void", h.voidExpense)
	}
}

func (h *expenseHandler) createExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	var req dto.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for createExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		logger.Error("Participant ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expense, groupVersion, err := h.expenseService.CreateExpense(
		c.Request.Context(), groupID, req, c.GetHeader(idempotencyKeyHeader), participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to create expense")
		return
	}

	logger.Info("Expense created",
		slog.String("expense_id", expense.ExpenseID),
		slog.Int64("group_version", groupVersion))
	c.JSON(http.StatusCreated, dto.ExpenseMutationResponse{
		Expense:      dto.ToExpenseResponse(expense),
		GroupVersion: groupVersion,
	})
}

func (h *expenseHandler) getExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")
	expenseID := c.Param("expenseID")

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expense, err := h.expenseService.GetExpenseByID(c.Request.Context(), groupID, expenseID, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve expense")
		return
	}

	c.JSON(http.StatusOK, dto.ToExpenseResponse(expense))
}

func (h *expenseHandler) listExpenses(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")

	var params dto.ListExpensesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Error("Failed to bind query for listExpenses", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp, err := h.expenseService.ListExpenses(c.Request.Context(), groupID, participantID, params)
	if err != nil {
		respondWithError(c, logger, err, "Failed to list expenses")
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *expenseHandler) updateExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")
	expenseID := c.Param("expenseID")

	var req dto.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for updateExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	expense, groupVersion, err := h.expenseService.UpdateExpense(c.Request.Context(), groupID, expenseID, req, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to update expense")
		return
	}

	logger.Info("Expense updated",
		slog.String("expense_id", expenseID),
		slog.Int64("version", expense.Version))
	c.JSON(http.StatusOK, dto.ExpenseMutationResponse{
		Expense:      dto.ToExpenseResponse(expense),
		GroupVersion: groupVersion,
	})
}

func (h *expenseHandler) voidExpense(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	groupID := c.Param("groupID")
	expenseID := c.Param("expenseID")

	var req dto.VoidExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to bind JSON for voidExpense", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	participantID, ok := middleware.GetParticipantIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	groupVersion, err := h.expenseService.VoidExpense(c.Request.Context(), groupID, expenseID, req.Version, participantID)
	if err != nil {
		respondWithError(c, logger, err, "Failed to void expense")
		return
	}

	logger.Info("Expense voided",
		slog.String("expense_id", expenseID),
		slog.Int64("group_version", groupVersion))
	c.JSON(http.StatusOK, gin.H{"groupVersion": groupVersion})
}

// respondWithError maps service errors onto HTTP statuses. Unrecognized
// errors become opaque 500s; their details stay in the logs.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation failure", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, apperrors.ErrStaleSettlement):
		logger.Warn("Stale settlement", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "STALE_LEDGER"})
	case errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Version conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "VERSION_CONFLICT"})
	case errors.Is(err, apperrors.ErrDuplicate):
		logger.Warn("Duplicate", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "DUPLICATE"})
	default:
		logger.Error(fallbackMsg, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallbackMsg})
	}
}
