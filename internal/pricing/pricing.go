// Package pricing считает стоимость корзины: скидки, кампания «3 al 2 öde» и
// порог бесплатной доставки. Все суммы — в курушах (minor units).
package pricing

import (
	"time"

	"github.com/abdullah-koca/lunora/internal/models"

	"github.com/google/uuid"
)

const (
	ShippingFeeCents           int64 = 50_00
	FreeShippingThresholdCents int64 = 1500_00
)

type Calculator struct {
	now func() time.Time
}

func NewCalculator() *Calculator {
	return &Calculator{now: time.Now}
}

// NewCalculatorAt фиксирует «текущее» время — для проверки окна кампании в тестах.
func NewCalculatorAt(now func() time.Time) *Calculator {
	return &Calculator{now: now}
}

// campaignActive проверяет тип кампании и окно её действия.
func (c *Calculator) campaignActive(it models.CartItem) bool {
	if !it.CampaignActive || it.CampaignType == nil || *it.CampaignType != models.CampaignBuyXGetY {
		return false
	}
	now := c.now()
	if it.CampaignStartDate != nil && now.Before(*it.CampaignStartDate) {
		return false
	}
	if it.CampaignEndDate != nil && now.After(*it.CampaignEndDate) {
		return false
	}
	return true
}

// BaseSubtotal — сумма позиций без кампании (скидочные цены уже учтены).
func (c *Calculator) BaseSubtotal(cart []models.CartItem) int64 {
	var total int64
	for _, it := range cart {
		total += it.EffectivePriceCents() * int64(it.Quantity)
	}
	return total
}

type group struct {
	items    []models.CartItem
	quantity int32
}

// groupByProduct объединяет размеры одного товара: кампания считает их вместе.
func groupByProduct(cart []models.CartItem) ([]uuid.UUID, map[uuid.UUID]*group) {
	order := make([]uuid.UUID, 0, len(cart))
	groups := make(map[uuid.UUID]*group, len(cart))
	for _, it := range cart {
		g, ok := groups[it.ProductID]
		if !ok {
			g = &group{}
			groups[it.ProductID] = g
			order = append(order, it.ProductID)
		}
		g.items = append(g.items, it)
		g.quantity += it.Quantity
	}
	return order, groups
}

// Total — стоимость корзины с кампанией: на каждые 3 единицы товара одна
// бесплатна, разные размеры суммируются.
func (c *Calculator) Total(cart []models.CartItem) int64 {
	order, groups := groupByProduct(cart)

	var total int64
	for _, id := range order {
		g := groups[id]
		first := g.items[0]
		if c.campaignActive(first) {
			price := first.EffectivePriceCents()
			free := int64(g.quantity / 3)
			paid := int64(g.quantity) - free
			total += price * paid
			continue
		}
		for _, it := range g.items {
			total += it.EffectivePriceCents() * int64(it.Quantity)
		}
	}
	return total
}

// CampaignSavings — сколько сэкономлено кампанией (для отображения).
func (c *Calculator) CampaignSavings(cart []models.CartItem) int64 {
	order, groups := groupByProduct(cart)

	var savings int64
	for _, id := range order {
		g := groups[id]
		first := g.items[0]
		if !c.campaignActive(first) {
			continue
		}
		free := int64(g.quantity / 3)
		savings += first.EffectivePriceCents() * free
	}
	return savings
}

// ShippingCost: от 1500 TL доставка бесплатна, иначе 50 TL.
func (c *Calculator) ShippingCost(cart []models.CartItem) int64 {
	if c.Total(cart) >= FreeShippingThresholdCents {
		return 0
	}
	return ShippingFeeCents
}

func (c *Calculator) FinalTotal(cart []models.CartItem) int64 {
	return c.Total(cart) + c.ShippingCost(cart)
}
