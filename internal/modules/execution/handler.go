package execution

import (
	"errors"
	"net/http"
	"strconv"

	"taskbroker/internal/domain"
	"taskbroker/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/executions", h.CreateExecution)
	rg.GET("/executions/:id", h.GetExecution)
	rg.PUT("/executions/:id", h.UpdateExecution)
}

func (h *Handler) CreateExecution(c *gin.Context) {
	var req CreateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	e, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"execution": e})
}

func (h *Handler) GetExecution(c *gin.Context) {
	id, ok := executionID(c)
	if !ok {
		return
	}

	e, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"execution": e})
}

func (h *Handler) UpdateExecution(c *gin.Context) {
	id, ok := executionID(c)
	if !ok {
		return
	}

	var req UpdateExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	e, err := h.service.SetFlag(c.Request.Context(), id, domain.ExecutionField(req.Field), c.GetInt64("user_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"execution": e})
}

func executionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid execution ID")
		return 0, false
	}
	return id, true
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Execution record not found")
	case errors.Is(err, ErrDuplicate):
		response.Error(c, http.StatusBadRequest, "CONFLICT", "Execution record already exists for this booking")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You may not set this flag")
	case errors.Is(err, ErrPrecondition):
		response.Error(c, http.StatusBadRequest, "PRECONDITION_FAILED", "Required prior flag is still pending")
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", "Booking is not paid")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")
	}
}
