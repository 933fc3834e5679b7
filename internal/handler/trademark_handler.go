package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/trademark-service/internal/llm"
	"github.com/fleveque/trademark-service/internal/model"
	"github.com/fleveque/trademark-service/internal/service"
)

// MarksRequest is the body of the mark comparison endpoints.
type MarksRequest struct {
	Applicant model.Mark `json:"applicant" binding:"required"`
	Opponent  model.Mark `json:"opponent" binding:"required"`
}

// GoodsServicesRequest is the body of POST /api/v1/goods-services/compare.
type GoodsServicesRequest struct {
	ApplicantGoods []model.GoodService              `json:"applicant_goods" binding:"required,min=1,dive"`
	OpponentGoods  []model.GoodService              `json:"opponent_goods" binding:"required,min=1,dive"`
	MarkSimilarity *model.MarkSimilarityAssessment `json:"mark_similarity" binding:"required"`
}

// TrademarkHandler exposes the trademark service over HTTP.
type TrademarkHandler struct {
	service *service.TrademarkService
	logger  *zap.Logger
}

// NewTrademarkHandler creates a new TrademarkHandler.
func NewTrademarkHandler(svc *service.TrademarkService, logger *zap.Logger) *TrademarkHandler {
	return &TrademarkHandler{
		service: svc,
		logger:  logger,
	}
}

// CompareMarks scores two wordmarks.
// Route: POST /api/v1/marks/compare
func (h *TrademarkHandler) CompareMarks(c *gin.Context) {
	var req MarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CompareMarks(c.Request.Context(), req.Applicant, req.Opponent)
	if err != nil {
		h.fail(c, "comparing marks", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AssessMarks asks the model for a holistic mark assessment.
// Route: POST /api/v1/marks/assess
func (h *TrademarkHandler) AssessMarks(c *gin.Context) {
	var req MarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.AssessMarks(c.Request.Context(), req.Applicant, req.Opponent)
	if err != nil {
		h.fail(c, "assessing marks", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CompareGoodsServices assesses every goods pair against a mark assessment.
// Route: POST /api/v1/goods-services/compare
func (h *TrademarkHandler) CompareGoodsServices(c *gin.Context) {
	var req GoodsServicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.CompareGoodsServices(c.Request.Context(), req.ApplicantGoods, req.OpponentGoods, req.MarkSimilarity)
	if err != nil {
		h.fail(c, "comparing goods/services", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PredictCase runs the full case: marks first, then goods/services.
// Route: POST /api/v1/cases/predict
func (h *TrademarkHandler) PredictCase(c *gin.Context) {
	var req model.CaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.PredictCase(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "predicting case", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// fail maps a service error to a status code and logs it.
func (h *TrademarkHandler) fail(c *gin.Context, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, zap.Int("status", status), zap.Error(err))
	} else {
		h.logger.Debug(op, zap.Int("status", status), zap.Error(err))
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	var (
		emptyErr      *llm.EmptyOutputError
		validationErr *llm.ValidationError
		serviceErr    *llm.ServiceError
	)
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.As(err, &emptyErr), errors.As(err, &validationErr), errors.As(err, &serviceErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
