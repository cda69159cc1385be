package handlers

import (
	"errors"
	"net/http"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PayTRHandler struct {
	broker   service.TokenBroker
	callback *service.CallbackService
	log      *zap.Logger
}

func NewPayTRHandler(broker service.TokenBroker, callback *service.CallbackService, log *zap.Logger) *PayTRHandler {
	return &PayTRHandler{broker: broker, callback: callback, log: log}
}

// GetToken — прямой запрос токена у шлюза без создания заказа. Email и имя
// берутся из identity, не из тела запроса.
func (h *PayTRHandler) GetToken(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}

	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	basket := make([]paytr.BasketItem, 0, len(req.Basket))
	for _, it := range req.Basket {
		basket = append(basket, paytr.BasketItem{Name: it.Name, Price: it.Price, Quantity: it.Quantity})
	}

	tok, err := h.broker.GetToken(c.Request.Context(), paytr.TokenRequest{
		MerchantOID:    req.MerchantOID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		NoInstallment:  req.NoInstallment,
		MaxInstallment: req.MaxInstallment,
		TestMode:       req.TestMode,
		UserIP:         c.ClientIP(),
		Customer: paytr.Customer{
			Email:   user.Email,
			Name:    user.Name,
			Address: req.Address,
			Phone:   req.Phone,
		},
		Basket: basket,
	})
	if err != nil {
		var gw *paytr.GatewayError
		switch {
		case errors.As(err, &gw):
			c.JSON(http.StatusBadGateway, dto.NewBadGatewayError(gw.Reason))
		case errors.Is(err, paytr.ErrGatewayUnreachable):
			c.JSON(http.StatusBadGateway, dto.NewBadGatewayError("payment gateway unreachable"))
		case errors.Is(err, paytr.ErrInvalidAmount),
			errors.Is(err, paytr.ErrMissingCustomer),
			errors.Is(err, paytr.ErrEmptyBasket),
			errors.Is(err, paytr.ErrInvalidBasket):
			c.JSON(http.StatusBadRequest, dto.NewValidationError(err.Error(), nil))
		default:
			h.log.Error("token request failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		}
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{
		Status:      "success",
		Token:       tok.Token,
		MerchantOID: tok.MerchantOID,
		IframeURL:   tok.IframeURL,
	})
}

// callbackForm — форма server-to-server уведомления PayTR.
type callbackForm struct {
	MerchantOID  string `form:"merchant_oid" binding:"required"`
	Status       string `form:"status" binding:"required"`
	TotalAmount  string `form:"total_amount" binding:"required"`
	Hash         string `form:"hash" binding:"required"`
	FailedReason string `form:"failed_reason_msg"`
}

// Callback — приёмник уведомлений шлюза. Контракт квитанции жёсткий: тело
// ровно "OK", иначе PayTR продолжит повторять запрос. Неверная подпись —
// единственный случай, который не квитируется.
func (h *PayTRHandler) Callback(c *gin.Context) {
	var form callbackForm
	if err := c.ShouldBind(&form); err != nil {
		h.log.Warn("malformed callback", zap.Error(err))
		c.String(http.StatusBadRequest, "BAD REQUEST")
		return
	}

	err := h.callback.Handle(c.Request.Context(), paytr.CallbackNotification{
		MerchantOID:  form.MerchantOID,
		Status:       form.Status,
		TotalAmount:  form.TotalAmount,
		Hash:         form.Hash,
		FailedReason: form.FailedReason,
	})
	if err != nil {
		// только подпись: всё остальное Handle квитирует сам
		c.String(http.StatusBadRequest, "BAD HASH")
		return
	}
	c.String(http.StatusOK, "OK")
}
