package handlers

import (
	"net/http"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/pricing"
	"github.com/abdullah-koca/lunora/internal/repository"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts    repository.CartRepo
	products repository.ProductRepo
	calc     *pricing.Calculator
	log      *zap.Logger
}

func NewCartHandler(carts repository.CartRepo, products repository.ProductRepo, calc *pricing.Calculator, log *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, products: products, calc: calc, log: log}
}

type cartView struct {
	Items         []models.CartItem `json:"items"`
	SubtotalCents int64             `json:"subtotal_cents"`
	SavingsCents  int64             `json:"campaign_savings_cents"`
	ShippingCents int64             `json:"shipping_cents"`
	TotalCents    int64             `json:"total_cents"`
}

func (h *CartHandler) view(items []models.CartItem) cartView {
	return cartView{
		Items:         items,
		SubtotalCents: h.calc.BaseSubtotal(items),
		SavingsCents:  h.calc.CampaignSavings(items),
		ShippingCents: h.calc.ShippingCost(items),
		TotalCents:    h.calc.FinalTotal(items),
	}
}

func (h *CartHandler) Get(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}
	items, err := h.carts.Get(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error("cart load failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, h.view(items))
}

// Update заменяет корзину целиком. Цены, скидки и поля кампаний берутся из
// каталога на момент записи — клиентским ценам сервер не верит.
func (h *CartHandler) Update(c *gin.Context) {
	user, ok := service.IdentityFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.NewUnauthorizedError("identity required"))
		return
	}

	var req dto.CartUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationError("invalid request body", nil))
		return
	}

	items := make([]models.CartItem, 0, len(req.Items))
	for _, line := range req.Items {
		p, err := h.products.GetByID(c.Request.Context(), line.ProductID)
		if err != nil {
			h.log.Error("product lookup failed", zap.String("product_id", line.ProductID.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
			return
		}
		if p == nil || !p.IsActive {
			c.JSON(http.StatusNotFound, dto.NewNotFoundError("product not found: "+line.ProductID.String()))
			return
		}
		items = append(items, models.CartItem{
			ProductID:          p.ID,
			Name:               p.Name,
			PriceCents:         p.PriceCents,
			IsDiscounted:       p.IsDiscounted,
			DiscountPriceCents: p.DiscountPriceCents,
			Size:               line.Size,
			Quantity:           line.Quantity,
			Image:              p.Image,
			ProductCode:        p.ProductCode,
			CampaignType:       p.CampaignType,
			CampaignActive:     p.CampaignActive,
			CampaignStartDate:  p.CampaignStartDate,
			CampaignEndDate:    p.CampaignEndDate,
		})
	}

	if err := h.carts.Save(c.Request.Context(), user.ID, items); err != nil {
		h.log.Error("cart save failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewInternalError(""))
		return
	}
	c.JSON(http.StatusOK, h.view(items))
}
