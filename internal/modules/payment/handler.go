package payment

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"taskbroker/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/init", h.InitPayment)
	rg.GET("/bookings/:id/payment", h.GetBookingPayment)
}

// RegisterPublicRoutes mounts the gateway callback. The gateway does not
// carry a user token; the md5 signature is the authentication.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/payments/result", h.ResultCallback)
}

func (h *Handler) InitPayment(c *gin.Context) {
	var req InitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	resp, err := h.service.InitPayment(c.Request.Context(), req, c.GetInt64("user_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payment": resp})
}

func (h *Handler) GetBookingPayment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return
	}

	p, err := h.service.GetByBooking(c.Request.Context(), id, c.GetInt64("user_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payment": p})
}

func (h *Handler) ResultCallback(c *gin.Context) {
	rawBody, _ := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(strings.NewReader(string(rawBody)))
	_ = c.Request.ParseForm()

	outSum := c.PostForm("OutSum")
	invID, err := strconv.ParseInt(c.PostForm("InvId"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	signature := c.PostForm("SignatureValue")
	shp := collectShp(c)

	ack, err := h.service.HandleResultCallback(c.Request.Context(), outSum, invID, signature, shp, string(rawBody))
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) || errors.Is(err, ErrAmountMismatch) {
			c.String(http.StatusForbidden, "forbidden")
			return
		}
		if errors.Is(err, ErrNotFound) {
			c.String(http.StatusNotFound, "not found")
			return
		}
		c.String(http.StatusInternalServerError, "internal error")
		return
	}

	c.String(http.StatusOK, ack)
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input")
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, ErrInvalidState):
		response.Error(c, http.StatusConflict, "INVALID_STATE", "Booking is not payable")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "You are not allowed to pay for this booking")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Unexpected error")
	}
}

func collectShp(c *gin.Context) map[string]string {
	res := map[string]string{}
	for k, v := range c.Request.Form {
		if strings.HasPrefix(strings.ToLower(k), "shp_") && len(v) > 0 {
			res[k[4:]] = v[0]
		}
	}
	return res
}
