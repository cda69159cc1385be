package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/pricing"
	"github.com/abdullah-koca/lunora/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RelayMessage — сообщение из iframe-страницы о результате оплаты,
// пересланное фронтендом. Принимается только со своего origin.
type RelayMessage struct {
	Type        string `json:"type"`
	Status      string `json:"status"`
	OrderNumber string `json:"orderId"`
	Message     string `json:"message,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

const RelayMessageType = "PAYMENT_RESULT"

const orderCreateTimeout = 10 * time.Second

// CheckoutService — координатор checkout: владеет последовательностью шагов,
// получает токен, создаёт pending-заказ, рендерит платёжный iframe и сводит
// воедино три источника финального сигнала (relay, callback, отмена).
type CheckoutService struct {
	sessions  *SessionStore
	broker    TokenBroker
	ledger    Ledger
	inventory StockAdjuster
	orders    repository.OrderRepo
	carts     repository.CartRepo
	addresses repository.AddressRepo
	calc      *pricing.Calculator
	events    EventBus

	publicOrigin string
	log          *zap.Logger
	now          func() time.Time
}

func NewCheckoutService(
	sessions *SessionStore,
	broker TokenBroker,
	ledger Ledger,
	inventory StockAdjuster,
	orders repository.OrderRepo,
	carts repository.CartRepo,
	addresses repository.AddressRepo,
	calc *pricing.Calculator,
	events EventBus,
	publicOrigin string,
	log *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		sessions:     sessions,
		broker:       broker,
		ledger:       ledger,
		inventory:    inventory,
		orders:       orders,
		carts:        carts,
		addresses:    addresses,
		calc:         calc,
		events:       events,
		publicOrigin: strings.TrimRight(publicOrigin, "/"),
		log:          log,
		now:          time.Now,
	}
}

// Start создаёт сессию, один раз снимая identity покупателя из контекста.
func (s *CheckoutService) Start(ctx context.Context) (View, error) {
	user, ok := IdentityFromContext(ctx)
	if !ok {
		return View{}, ErrUnauthorized
	}
	sess := s.sessions.Create(user)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

func (s *CheckoutService) sessionFor(ctx context.Context, id uuid.UUID) (*Session, error) {
	user, ok := IdentityFromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.User.ID != user.ID {
		return nil, ErrForbidden
	}
	return sess, nil
}

func (s *CheckoutService) State(ctx context.Context, id uuid.UUID) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.view(), nil
}

// SelectAddress привязывает адрес пользователя к сессии. Снапшот в заказ
// попадёт при создании pending-записи.
func (s *CheckoutService) SelectAddress(ctx context.Context, id, addressID uuid.UUID) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}

	addr, err := s.addresses.GetByIDForUser(ctx, addressID, sess.User.ID)
	if err != nil {
		return View{}, err
	}
	if addr == nil {
		return View{}, ErrAddressNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.Step != StepAddress && sess.Step != StepReview {
		return sess.view(), ErrInvalidStep
	}
	sess.Address = addr
	return sess.view(), nil
}

// Next — переход Address→Review; без выбранного адреса остаёмся на месте.
func (s *CheckoutService) Next(ctx context.Context, id uuid.UUID) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepAddress {
		return sess.view(), ErrInvalidStep
	}
	if sess.Address == nil {
		return sess.view(), ErrNoAddressSelected
	}
	sess.Step = StepReview
	return sess.view(), nil
}

func (s *CheckoutService) Back(ctx context.Context, id uuid.UUID) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepReview {
		// с шага оплаты уходят только через Cancel, с успеха — через Close
		return sess.view(), ErrInvalidStep
	}
	sess.Step = StepAddress
	return sess.view(), nil
}

func centsToDecimal(c int64) float64 { return float64(c) / 100 }

// Pay выполняет Review→Payment: сперва токен у шлюза, затем pending-заказ.
// Порядок жёсткий — заказ без авторизованного токена это осиротевшая запись.
// Любая ошибка возвращает сессию в Review без следов попытки.
func (s *CheckoutService) Pay(ctx context.Context, id uuid.UUID, clientIP string) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepReview {
		return sess.view(), ErrInvalidStep
	}
	if sess.Address == nil {
		return sess.view(), ErrNoAddressSelected
	}

	cart, err := s.carts.Get(ctx, sess.User.ID)
	if err != nil {
		return sess.view(), err
	}
	if len(cart) == 0 {
		return sess.view(), ErrEmptyCart
	}

	totalCents := s.calc.FinalTotal(cart)
	oid := paytr.GenerateMerchantOID()

	basket := make([]paytr.BasketItem, 0, len(cart))
	for _, it := range cart {
		basket = append(basket, paytr.BasketItem{
			Name:     it.Name,
			Price:    centsToDecimal(it.EffectivePriceCents()),
			Quantity: int(it.Quantity),
		})
	}

	addr := sess.Address
	fullAddress := addr.AddressLine + ", " + addr.District + ", " + addr.City
	if addr.PostalCode != "" {
		fullAddress += " " + addr.PostalCode
	}

	tok, err := s.broker.GetToken(ctx, paytr.TokenRequest{
		MerchantOID: oid,
		Amount:      centsToDecimal(totalCents),
		Currency:    "TL",
		UserIP:      clientIP,
		Customer: paytr.Customer{
			Email:   sess.User.Email,
			Name:    addr.FullName,
			Address: fullAddress,
			Phone:   addr.Phone,
		},
		Basket: basket,
	})
	if err != nil {
		// токена нет — ни одна запись заказа не должна существовать
		sess.OrderNumber, sess.Token, sess.IframeURL = "", "", ""
		sess.Payment = PaymentIdle
		sess.LastError = payInitErrorMessage(err)
		return sess.view(), err
	}

	orderCtx, cancel := context.WithTimeout(ctx, orderCreateTimeout)
	defer cancel()

	_, err = s.ledger.CreatePendingOrder(orderCtx, CreatePendingOrderInput{
		User:        sess.User,
		OrderNumber: oid,
		TotalCents:  totalCents,
		Currency:    "TL",
		Address: models.AddressSnapshot{
			Title:       addr.Title,
			FullName:    addr.FullName,
			Phone:       addr.Phone,
			AddressLine: addr.AddressLine,
			City:        addr.City,
			District:    addr.District,
			PostalCode:  addr.PostalCode,
		},
		Items: cart,
	})
	if err != nil {
		// Токен уже выдан, а заказа нет: риск авторизованного, но
		// незаписанного платежа. Единственный путь, который обязан шуметь.
		s.log.Error("pending order write failed after token grant",
			zap.String("order_number", oid),
			zap.String("user_id", sess.User.ID.String()),
			zap.Int64("total_cents", totalCents),
			zap.Error(err),
		)
		sess.OrderNumber, sess.Token, sess.IframeURL = "", "", ""
		sess.Payment = PaymentIdle
		sess.LastError = "order could not be recorded, payment was not started"
		return sess.view(), err
	}

	sess.OrderNumber = oid
	sess.Token = tok.Token
	sess.IframeURL = tok.IframeURL
	sess.Payment = PaymentAwaiting
	sess.LastError = ""
	sess.Step = StepPayment
	return sess.view(), nil
}

func payInitErrorMessage(err error) string {
	var gw *paytr.GatewayError
	switch {
	case errors.As(err, &gw) && gw.Reason != "":
		return gw.Reason
	case errors.Is(err, paytr.ErrGatewayUnreachable):
		return "payment gateway is not responding, please try again"
	default:
		return "payment could not be started, please try again"
	}
}

// HandleRelay применяет сигнал из iframe. Чужой origin отвергается как
// нарушение границы доверия; сообщение не про активный заказ игнорируется.
// Финализация идемпотентна и на уровне сессии, и в журнале.
func (s *CheckoutService) HandleRelay(ctx context.Context, id uuid.UUID, origin string, msg RelayMessage) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}

	if strings.TrimRight(origin, "/") != s.publicOrigin {
		s.log.Warn("relay message from foreign origin rejected",
			zap.String("origin", origin),
			zap.String("session_id", id.String()),
		)
		return View{}, ErrForeignOrigin
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if msg.Type != RelayMessageType || sess.OrderNumber == "" || msg.OrderNumber != sess.OrderNumber {
		// stale или чужое сообщение — состояние не меняем
		return sess.view(), nil
	}
	if sess.Payment == PaymentSuccess || sess.Payment == PaymentFailed {
		// вторая финализация той же сессии — no-op
		return sess.view(), nil
	}

	switch msg.Status {
	case "success":
		s.finalizeSuccess(ctx, sess, msg.Message)
	case "failed", "error":
		reason := msg.Message
		if reason == "" {
			reason = msg.Reason
		}
		s.finalizeFailure(ctx, sess, "failed", reason)
	}
	return sess.view(), nil
}

// finalizeSuccess вызывается под локом сессии.
func (s *CheckoutService) finalizeSuccess(ctx context.Context, sess *Session, message string) {
	transitioned, err := s.ledger.Finalize(ctx, sess.OrderNumber, OutcomeSuccess, models.PaymentDiag{
		PaymentProvider: PaymentProviderPayTR,
		MerchantOID:     sess.OrderNumber,
		Status:          "paid",
		Message:         message,
	})
	if err != nil {
		s.log.Error("finalize after relay success failed",
			zap.String("order_number", sess.OrderNumber), zap.Error(err))
		sess.LastError = "order status could not be updated, please contact support"
		return
	}

	if transitioned {
		ord, err := s.orders.GetByNumber(ctx, sess.OrderNumber)
		if err != nil || ord == nil {
			s.log.Error("paid order lookup failed",
				zap.String("order_number", sess.OrderNumber), zap.Error(err))
		} else {
			// списание остатков не блокирует переход и не откатывает его
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
	}

	sess.Payment = PaymentSuccess
	sess.Token, sess.IframeURL = "", ""
	sess.LastError = ""
	sess.Step = StepSuccess
}

// finalizeFailure вызывается под локом сессии. Адрес не сбрасывается —
// пользователь может повторить оплату.
func (s *CheckoutService) finalizeFailure(ctx context.Context, sess *Session, providerStatus, reason string) {
	if _, err := s.ledger.Finalize(ctx, sess.OrderNumber, OutcomeFailure, models.PaymentDiag{
		PaymentProvider: PaymentProviderPayTR,
		MerchantOID:     sess.OrderNumber,
		Status:          providerStatus,
		Message:         reason,
	}); err != nil {
		s.log.Error("finalize after relay failure failed",
			zap.String("order_number", sess.OrderNumber), zap.Error(err))
	}

	sess.Payment = PaymentFailed
	sess.Token, sess.IframeURL = "", ""
	if reason != "" {
		sess.LastError = reason
	} else {
		sess.LastError = "payment could not be completed"
	}
	sess.Step = StepReview
}

// Cancel — добровольный отказ на шаге оплаты. Отмена помечается отдельным
// диагностическим статусом и не способна остановить уже идущую авторизацию
// на стороне шлюза: поздний success-callback отсечёт CAS журнала.
func (s *CheckoutService) Cancel(ctx context.Context, id uuid.UUID) (View, error) {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return View{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepPayment {
		return sess.view(), ErrInvalidStep
	}

	if sess.OrderNumber != "" {
		if _, err := s.ledger.Finalize(ctx, sess.OrderNumber, OutcomeFailure, models.PaymentDiag{
			PaymentProvider: PaymentProviderPayTR,
			MerchantOID:     sess.OrderNumber,
			Status:          "cancelled_by_user",
		}); err != nil {
			s.log.Error("cancel finalize failed",
				zap.String("order_number", sess.OrderNumber), zap.Error(err))
			return sess.view(), err
		}
	}

	sess.OrderNumber, sess.Token, sess.IframeURL = "", "", ""
	sess.Payment = PaymentIdle
	sess.LastError = ""
	sess.Step = StepReview
	return sess.view(), nil
}

// Close завершает сессию. Корзина очищается только после подтверждённого
// успеха — при любом другом исходе она остаётся нетронутой.
func (s *CheckoutService) Close(ctx context.Context, id uuid.UUID) error {
	sess, err := s.sessionFor(ctx, id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	succeeded := sess.Payment == PaymentSuccess
	userID := sess.User.ID
	sess.mu.Unlock()

	if succeeded {
		if err := s.carts.Clear(ctx, userID); err != nil {
			s.log.Error("cart clear after success failed",
				zap.String("user_id", userID.String()), zap.Error(err))
		}
	}

	s.sessions.Delete(id)
	return nil
}
