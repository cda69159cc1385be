package service

import (
	"context"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/repository"

	"go.uber.org/zap"
)

// InventoryAdjuster списывает остатки по оплаченному заказу. Best-effort:
// оплата — первичное событие, остаток — производный счётчик. Ошибка по одной
// позиции не откатывает подтверждение и не мешает остальным позициям.
type InventoryAdjuster struct {
	products repository.ProductRepo
	log      *zap.Logger
}

func NewInventoryAdjuster(products repository.ProductRepo, log *zap.Logger) *InventoryAdjuster {
	return &InventoryAdjuster{products: products, log: log}
}

func (a *InventoryAdjuster) AdjustForOrder(ctx context.Context, ord *models.Order) {
	for _, it := range ord.Items {
		ok, err := a.products.DecrementStock(ctx, it.ProductID, it.Quantity)
		if err != nil {
			a.log.Error("stock adjustment failed",
				zap.String("order_number", ord.OrderNumber),
				zap.String("product_id", it.ProductID.String()),
				zap.Int32("quantity", it.Quantity),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			a.log.Warn("stock adjustment matched no product",
				zap.String("order_number", ord.OrderNumber),
				zap.String("product_id", it.ProductID.String()),
			)
		}
	}
}
