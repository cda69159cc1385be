package handlers

import (
	"errors"
	"net/http"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
	log      *zap.Logger
}

func NewCheckoutHandler(checkout *service.CheckoutService, log *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, log: log}
}

// respondCheckoutError переводит сентинели сервиса в HTTP-ответы.
func (h *CheckoutHandler) respondCheckoutError(c *gin.Context, err error) {
	var gw *paytr.GatewayError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
	case errors.Is(err, service.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("checkout session not found"))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("session belongs to another user"))
	case errors.Is(err, service.ErrForeignOrigin):
		c.JSON(http.StatusForbidden, dto.NewForbiddenError("relay origin not allowed"))
	case errors.Is(err, service.ErrInvalidStep):
		c.JSON(http.StatusConflict, dto.NewConflictError("operation not allowed at current step"))
	case errors.Is(err, service.ErrNoAddressSelected):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("shipping address is not selected", nil))
	case errors.Is(err, service.ErrAddressNotFound):
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("address not found"))
	case errors.Is(err, service.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, dto.NewValidationError("cart is empty", nil))
	case errors.As(err, &gw):
		c.JSON(http.StatusBadGateway, dto.NewBadGatewayError(gw.Reason))
	case errors.Is(err, paytr.ErrGatewayUnreachable):
		c.JSON(http.StatusBadGateway, dto.NewBadGatewayError("payment gateway unreachable"))
	default:
		h.log.Error("checkout operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
	}
}

func (h *CheckoutHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid session id", nil))
		return uuid.Nil, false
	}
	return id, true
}

func (h *CheckoutHandler) Start(c *gin.Context) {
	view, err := h.checkout.Start(c.Request.Context())
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (h *CheckoutHandler) State(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.checkout.State(c.Request.Context(), id)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) SelectAddress(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req dto.SelectAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	view, err := h.checkout.SelectAddress(c.Request.Context(), id, req.AddressID)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) Next(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.checkout.Next(c.Request.Context(), id)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) Back(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.checkout.Back(c.Request.Context(), id)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) Pay(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.checkout.Pay(c.Request.Context(), id, c.ClientIP())
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Relay принимает пересланное фронтендом сообщение iframe. Origin берётся из
// заголовка запроса: фронтенд обязан слать его со своего origin.
func (h *CheckoutHandler) Relay(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	var req dto.RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}
	view, err := h.checkout.HandleRelay(c.Request.Context(), id, c.GetHeader("Origin"), service.RelayMessage{
		Type:        req.Type,
		Status:      req.Status,
		OrderNumber: req.OrderNumber,
		Message:     req.Message,
		Reason:      req.Reason,
	})
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) Cancel(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	view, err := h.checkout.Cancel(c.Request.Context(), id)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *CheckoutHandler) Close(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}
	if err := h.checkout.Close(c.Request.Context(), id); err != nil {
		h.respondCheckoutError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}
