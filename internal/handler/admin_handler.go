package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/storage"
)

const (
	defaultRecentCalls = 20
	maxRecentCalls     = 200
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	llmCallRepo storage.LLMCallRepository
	logger      *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(llmCallRepo storage.LLMCallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		llmCallRepo: llmCallRepo,
		logger:      logger,
	}
}

// Stats returns ledger totals, the per-provider breakdown and the most recent
// calls.
// Route: GET /api/v1/admin/stats?recent=20
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	limit := defaultRecentCalls
	if raw := c.Query("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "recent must be a non-negative integer"})
			return
		}
		limit = min(n, maxRecentCalls)
	}

	stats, err := h.llmCallRepo.Stats(ctx)
	if err != nil {
		h.logger.Error("reading llm call stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	recent, err := h.llmCallRepo.ListRecent(ctx, limit)
	if err != nil {
		h.logger.Error("listing recent llm calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"llm_calls": stats,
		"recent":    recent,
	})
}
