package service

import (
	"context"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/paytr"
)

// Порты координатора и callback-сервиса; конкретные реализации —
// paytr.Client, OrderLedger и InventoryAdjuster.

type TokenBroker interface {
	GetToken(ctx context.Context, req paytr.TokenRequest) (*paytr.TokenResponse, error)
}

type CallbackVerifier interface {
	VerifyCallbackHash(n paytr.CallbackNotification) bool
}

type Ledger interface {
	CreatePendingOrder(ctx context.Context, in CreatePendingOrderInput) (*models.Order, error)
	Finalize(ctx context.Context, orderNumber string, outcome Outcome, diag models.PaymentDiag) (bool, error)
}

type StockAdjuster interface {
	AdjustForOrder(ctx context.Context, ord *models.Order)
}
