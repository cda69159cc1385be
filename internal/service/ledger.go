package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/repository"

	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

const PaymentProviderPayTR = "paytr"

type CreatePendingOrderInput struct {
	User        Identity
	OrderNumber string
	TotalCents  int64
	Currency    string
	Address     models.AddressSnapshot
	Items       []models.CartItem
}

// OrderLedger пишет и финализирует заказы. Создание pending-записи допустимо
// только после успешного получения токена — иначе остаются осиротевшие заказы.
type OrderLedger struct {
	orders repository.OrderRepo
	log    *zap.Logger
	now    func() time.Time
}

func NewOrderLedger(orders repository.OrderRepo, log *zap.Logger) *OrderLedger {
	return &OrderLedger{orders: orders, log: log, now: time.Now}
}

func marshalDiag(d models.PaymentDiag) string {
	raw, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func (l *OrderLedger) CreatePendingOrder(ctx context.Context, in CreatePendingOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, ErrEmptyCart
	}

	addr, err := json.Marshal(in.Address)
	if err != nil {
		return nil, fmt.Errorf("marshal address snapshot: %w", err)
	}

	currency := in.Currency
	if currency == "" {
		currency = "TL"
	}

	now := l.now()
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, models.OrderItem{
			ProductID:      it.ProductID,
			ProductName:    it.Name,
			UnitPriceCents: it.EffectivePriceCents(),
			Size:           it.Size,
			Quantity:       it.Quantity,
			Image:          it.Image,
			CreatedAt:      now,
		})
	}

	name := in.User.Name
	if name == "" {
		name = in.User.Email
	}

	ord := &models.Order{
		UserID:          in.User.ID,
		CustomerEmail:   in.User.Email,
		NameSurname:     name,
		OrderNumber:     in.OrderNumber,
		TotalCents:      in.TotalCents,
		Currency:        currency,
		PaymentMethod:   PaymentProviderPayTR,
		PaymentStatus:   models.PaymentStatusPending,
		Status:          models.OrderStatusPending,
		ShippingAddress: string(addr),
		Notes: marshalDiag(models.PaymentDiag{
			PaymentProvider: PaymentProviderPayTR,
			MerchantOID:     in.OrderNumber,
			Status:          "pending",
		}),
		CreatedAt: now,
		UpdatedAt: now,
		Items:     items,
	}

	if err := l.orders.Create(ctx, ord); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return ord, nil
}

// Finalize переводит заказ в терминальную пару статусов. Идемпотентен:
// повторный вызов с тем же исходом — no-op. Успех «липкий» — пришедший позже
// сигнал отказа оплаченный заказ не трогает. Возвращает true только когда
// именно этот вызов выиграл гонку и выполнил переход.
func (l *OrderLedger) Finalize(ctx context.Context, orderNumber string, outcome Outcome, diag models.PaymentDiag) (bool, error) {
	pay, status := models.PaymentStatusPaid, models.OrderStatusConfirmed
	if outcome == OutcomeFailure {
		pay, status = models.PaymentStatusFailed, models.OrderStatusCancelled
	}

	transitioned, err := l.orders.FinalizeFromPending(ctx, orderNumber, pay, status, marshalDiag(diag))
	if err != nil {
		return false, err
	}
	if transitioned {
		l.log.Info("order finalized",
			zap.String("order_number", orderNumber),
			zap.String("outcome", string(outcome)),
			zap.String("provider_status", diag.Status),
		)
		return true, nil
	}

	// CAS не сработал: заказ уже терминален или не существует. Классифицируем.
	ord, err := l.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return false, err
	}
	if ord == nil {
		return false, ErrOrderNotFound
	}

	switch {
	case ord.PaymentStatus == pay:
		// повтор того же терминального исхода
		l.log.Debug("duplicate finalize ignored",
			zap.String("order_number", orderNumber),
			zap.String("outcome", string(outcome)),
		)
	case ord.PaymentStatus == models.PaymentStatusPaid && outcome == OutcomeFailure:
		l.log.Warn("late failure signal for paid order ignored",
			zap.String("order_number", orderNumber),
			zap.String("provider_status", diag.Status),
			zap.String("provider_message", diag.Message),
		)
	case ord.PaymentStatus == models.PaymentStatusFailed && outcome == OutcomeSuccess:
		// Деньги могли списаться по заказу, который уже отменён. Заказ не
		// воскрешаем, но оператор обязан это увидеть и свериться с провайдером.
		l.log.Error("late success signal for cancelled order dropped, manual reconciliation required",
			zap.String("order_number", orderNumber),
			zap.String("provider_status", diag.Status),
			zap.String("provider_message", diag.Message),
		)
	}
	return false, nil
}
