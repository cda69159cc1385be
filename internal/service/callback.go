package service

import (
	"context"
	"time"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/repository"

	"go.uber.org/zap"
)

// CallbackService обрабатывает server-to-server уведомления PayTR. Это второй,
// независимый от браузера путь финализации: подпись проверяется заново, переход
// в журнале тот же, побеждает первый успевший.
type CallbackService struct {
	verifier  CallbackVerifier
	ledger    Ledger
	orders    repository.OrderRepo
	inventory StockAdjuster
	events    EventBus
	log       *zap.Logger
	now       func() time.Time
}

func NewCallbackService(verifier CallbackVerifier, ledger Ledger, orders repository.OrderRepo, inventory StockAdjuster, events EventBus, log *zap.Logger) *CallbackService {
	return &CallbackService{
		verifier:  verifier,
		ledger:    ledger,
		orders:    orders,
		inventory: inventory,
		events:    events,
		log:       log,
		now:       time.Now,
	}
}

// Handle проверяет подпись и применяет исход. Возвращает ErrBadSignature,
// если хэш не сошёлся — такой запрос нельзя квитировать, иначе подделка
// будет молча принята. Любой другой внутренний исход для шлюза «успех»:
// квитанция останавливает его retry-цикл.
func (s *CallbackService) Handle(ctx context.Context, n paytr.CallbackNotification) error {
	if !s.verifier.VerifyCallbackHash(n) {
		s.log.Warn("callback hash verification failed",
			zap.String("order_number", n.MerchantOID),
			zap.String("status", n.Status),
		)
		return ErrBadSignature
	}

	outcome := OutcomeFailure
	if n.Status == "success" {
		outcome = OutcomeSuccess
	}

	diag := models.PaymentDiag{
		PaymentProvider: PaymentProviderPayTR,
		MerchantOID:     n.MerchantOID,
		Status:          n.Status,
		Message:         n.FailedReason,
	}

	transitioned, err := s.ledger.Finalize(ctx, n.MerchantOID, outcome, diag)
	if err != nil {
		// Заказ не найден или БД недоступна: логируем, но шлюзу отвечаем OK —
		// его повтор ничего не исправит, сверка идёт по журналу.
		s.log.Error("callback finalize failed",
			zap.String("order_number", n.MerchantOID),
			zap.String("status", n.Status),
			zap.Error(err),
		)
		return nil
	}

	if transitioned && outcome == OutcomeSuccess {
		ord, err := s.orders.GetByNumber(ctx, n.MerchantOID)
		if err != nil || ord == nil {
			s.log.Error("paid order lookup after callback failed",
				zap.String("order_number", n.MerchantOID), zap.Error(err))
			return nil
		}
		s.inventory.AdjustForOrder(ctx, ord)
		if s.events != nil {
			_ = s.events.PublishOrderConfirmed(ctx, OrderConfirmedEvent{
				OrderNumber: ord.OrderNumber,
				Email:       ord.CustomerEmail,
				Name:        ord.NameSurname,
				TotalCents:  ord.TotalCents,
				Currency:    ord.Currency,
				ConfirmedAt: s.now(),
			})
		}
	}
	return nil
}
