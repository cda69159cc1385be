package handlers

import (
	"net/http"
	"strconv"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/repository"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OrderHandler — история заказов покупателя.
type OrderHandler struct {
	orders repository.OrderRepo
	log    *zap.Logger
}

func NewOrderHandler(orders repository.OrderRepo, log *zap.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

func (h *OrderHandler) List(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	list, total, err := h.orders.ListByUser(c.Request.Context(), user.ID, limit, offset)
	if err != nil {
		h.log.Error("order list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": list, "total": total})
}

// Get отдаёт заказ по merchant oid, только владельцу.
func (h *OrderHandler) Get(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}

	ord, err := h.orders.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.log.Error("order lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	if ord == nil || ord.UserID != user.ID {
		// чужой заказ неотличим от несуществующего
		c.JSON(http.StatusNotFound, dto.NewNotFoundError("order not found"))
		return
	}
	c.JSON(http.StatusOK, ord)
}
