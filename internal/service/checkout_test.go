package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/pricing"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testOrigin = "https://shop.example.com"

type checkoutFixture struct {
	svc       *service.CheckoutService
	broker    *MockBroker
	ledger    *MockLedger
	orders    *MockOrderRepo
	carts     *MockCartRepo
	addresses *MockAddressRepo
	bus       *MockBus
	user      service.Identity
	addressID uuid.UUID
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		broker:    &MockBroker{},
		ledger:    &MockLedger{},
		orders:    &MockOrderRepo{},
		carts:     &MockCartRepo{},
		addresses: &MockAddressRepo{},
		bus:       &MockBus{},
		user: service.Identity{
			ID:    uuid.New(),
			Email: "musteri@example.com",
			Name:  "Ayşe Yılmaz",
		},
		addressID: uuid.New(),
	}

	f.addresses.GetByIDForUserFunc = func(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
		if id != f.addressID || userID != f.user.ID {
			return nil, nil
		}
		return &models.Address{
			ID: id, UserID: userID,
			Title: "Ev", FullName: "Ayşe Yılmaz", Phone: "+905551112233",
			AddressLine: "Bağdat Cad. 1", City: "İstanbul", District: "Kadıköy",
		}, nil
	}
	f.carts.GetFunc = func(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
		return []models.CartItem{
			{ProductID: uuid.New(), Name: "Keten Gömlek", PriceCents: 129990, Size: "M", Quantity: 1},
		}, nil
	}

	calc := pricing.NewCalculatorAt(func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	})
	sessions := service.NewSessionStore(time.Hour, zap.NewNop())
	f.svc = service.NewCheckoutService(
		sessions, f.broker, f.ledger, &MockAdjuster{},
		f.orders, f.carts, f.addresses,
		calc, f.bus, testOrigin, zap.NewNop(),
	)
	return f
}

func (f *checkoutFixture) ctx() context.Context {
	return service.WithIdentity(context.Background(), f.user)
}

// toPaymentStep прогоняет сессию до шага оплаты и возвращает её вид.
func (f *checkoutFixture) toPaymentStep(t *testing.T) service.View {
	t.Helper()
	ctx := f.ctx()
	v, err := f.svc.Start(ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := f.svc.SelectAddress(ctx, v.ID, f.addressID); err != nil {
		t.Fatalf("SelectAddress: %v", err)
	}
	if _, err := f.svc.Next(ctx, v.ID); err != nil {
		t.Fatalf("Next: %v", err)
	}
	v, err = f.svc.Pay(ctx, v.ID, "10.0.0.7")
	if err != nil {
		t.Fatalf("Pay: %v", err)
	}
	return v
}

func TestStartRequiresIdentity(t *testing.T) {
	f := newCheckoutFixture()
	if _, err := f.svc.Start(context.Background()); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestForeignSessionForbidden(t *testing.T) {
	f := newCheckoutFixture()
	v, _ := f.svc.Start(f.ctx())

	other := service.WithIdentity(context.Background(), service.Identity{ID: uuid.New(), Email: "x@y.z"})
	if _, err := f.svc.State(other, v.ID); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestNextWithoutAddress(t *testing.T) {
	f := newCheckoutFixture()
	v, _ := f.svc.Start(f.ctx())

	got, err := f.svc.Next(f.ctx(), v.ID)
	if !errors.Is(err, service.ErrNoAddressSelected) {
		t.Fatalf("expected ErrNoAddressSelected, got %v", err)
	}
	if got.Step != service.StepAddress {
		t.Fatalf("step = %d, want to stay on address step", got.Step)
	}
}

func TestPayHappyPath(t *testing.T) {
	f := newCheckoutFixture()

	var tokenCalls, orderCalls int
	f.broker.GetTokenFunc = func(ctx context.Context, req paytr.TokenRequest) (*paytr.TokenResponse, error) {
		tokenCalls++
		if orderCalls != 0 {
			t.Fatal("order was created before token grant")
		}
		// 1299.90 товара + 50 доставки
		if req.Amount != 1349.90 {
			t.Fatalf("amount = %v, want 1349.90", req.Amount)
		}
		if req.Customer.Email != f.user.Email {
			t.Fatalf("customer email = %q", req.Customer.Email)
		}
		return &paytr.TokenResponse{Token: "tok", MerchantOID: req.MerchantOID, IframeURL: "iframe-url"}, nil
	}
	f.ledger.CreatePendingOrderFunc = func(ctx context.Context, in service.CreatePendingOrderInput) (*models.Order, error) {
		orderCalls++
		if in.TotalCents != 134990 {
			t.Fatalf("total = %d, want 134990", in.TotalCents)
		}
		if in.Address.City != "İstanbul" {
			t.Fatalf("address snapshot missing: %+v", in.Address)
		}
		return &models.Order{OrderNumber: in.OrderNumber}, nil
	}

	v := f.toPaymentStep(t)

	if tokenCalls != 1 || orderCalls != 1 {
		t.Fatalf("calls: token=%d order=%d", tokenCalls, orderCalls)
	}
	if v.Step != service.StepPayment || v.Payment != service.PaymentAwaiting {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.OrderNumber == "" || v.IframeURL != "iframe-url" {
		t.Fatalf("payment fields not set: %+v", v)
	}
}

func TestPayTokenFailureCreatesNoOrder(t *testing.T) {
	f := newCheckoutFixture()

	f.broker.GetTokenFunc = func(ctx context.Context, req paytr.TokenRequest) (*paytr.TokenResponse, error) {
		return nil, &paytr.GatewayError{Status: "failed", Reason: "INVALID_MERCHANT"}
	}
	orderCalls := 0
	f.ledger.CreatePendingOrderFunc = func(ctx context.Context, in service.CreatePendingOrderInput) (*models.Order, error) {
		orderCalls++
		return nil, nil
	}

	ctx := f.ctx()
	v, _ := f.svc.Start(ctx)
	_, _ = f.svc.SelectAddress(ctx, v.ID, f.addressID)
	_, _ = f.svc.Next(ctx, v.ID)

	got, err := f.svc.Pay(ctx, v.ID, "10.0.0.7")
	if err == nil {
		t.Fatal("expected error from Pay")
	}
	if orderCalls != 0 {
		t.Fatal("order must not be created when token request fails")
	}
	if got.Step != service.StepReview || got.Payment != service.PaymentIdle || got.OrderNumber != "" {
		t.Fatalf("session not rolled back: %+v", got)
	}
	if got.LastError == "" {
		t.Fatal("expected user-facing error message")
	}
}

func TestPayOrderWriteFailureRollsBack(t *testing.T) {
	f := newCheckoutFixture()
	f.ledger.CreatePendingOrderFunc = func(ctx context.Context, in service.CreatePendingOrderInput) (*models.Order, error) {
		return nil, service.ErrPersistence
	}

	ctx := f.ctx()
	v, _ := f.svc.Start(ctx)
	_, _ = f.svc.SelectAddress(ctx, v.ID, f.addressID)
	_, _ = f.svc.Next(ctx, v.ID)

	got, err := f.svc.Pay(ctx, v.ID, "10.0.0.7")
	if !errors.Is(err, service.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	if got.Step != service.StepReview || got.OrderNumber != "" || got.IframeURL != "" {
		t.Fatalf("session not rolled back: %+v", got)
	}
}

func TestRelaySuccessFinalizesOnce(t *testing.T) {
	f := newCheckoutFixture()

	finalizeCalls := 0
	f.ledger.FinalizeFunc = func(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error) {
		finalizeCalls++
		if outcome != service.OutcomeSuccess {
			t.Fatalf("outcome = %v", outcome)
		}
		return true, nil
	}
	f.orders.GetByNumberFunc = func(ctx context.Context, orderNumber string) (*models.Order, error) {
		return &models.Order{OrderNumber: orderNumber, CustomerEmail: f.user.Email, TotalCents: 134990, Currency: "TL"}, nil
	}
	published := 0
	f.bus.PublishOrderConfirmedFunc = func(ctx context.Context, e service.OrderConfirmedEvent) error {
		published++
		return nil
	}

	v := f.toPaymentStep(t)
	msg := service.RelayMessage{Type: service.RelayMessageType, Status: "success", OrderNumber: v.OrderNumber}

	got, err := f.svc.HandleRelay(f.ctx(), v.ID, testOrigin, msg)
	if err != nil {
		t.Fatalf("HandleRelay: %v", err)
	}
	if got.Step != service.StepSuccess || got.Payment != service.PaymentSuccess {
		t.Fatalf("unexpected view: %+v", got)
	}
	if got.IframeURL != "" {
		t.Fatal("iframe url must be dropped after finalization")
	}

	// повторный сигнал — no-op
	got, err = f.svc.HandleRelay(f.ctx(), v.ID, testOrigin, msg)
	if err != nil {
		t.Fatalf("second HandleRelay: %v", err)
	}
	if finalizeCalls != 1 || published != 1 {
		t.Fatalf("finalize=%d published=%d, want 1/1", finalizeCalls, published)
	}
	if got.Payment != service.PaymentSuccess {
		t.Fatalf("success is sticky, got %+v", got)
	}
}

func TestRelayForeignOriginRejected(t *testing.T) {
	f := newCheckoutFixture()
	finalized := false
	f.ledger.FinalizeFunc = func(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error) {
		finalized = true
		return true, nil
	}

	v := f.toPaymentStep(t)
	_, err := f.svc.HandleRelay(f.ctx(), v.ID, "https://evil.example.com",
		service.RelayMessage{Type: service.RelayMessageType, Status: "success", OrderNumber: v.OrderNumber})
	if !errors.Is(err, service.ErrForeignOrigin) {
		t.Fatalf("expected ErrForeignOrigin, got %v", err)
	}
	if finalized {
		t.Fatal("foreign-origin message must not finalize the order")
	}
}

func TestRelayStaleOrderIgnored(t *testing.T) {
	f := newCheckoutFixture()
	finalized := false
	f.ledger.FinalizeFunc = func(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error) {
		finalized = true
		return true, nil
	}

	v := f.toPaymentStep(t)
	got, err := f.svc.HandleRelay(f.ctx(), v.ID, testOrigin,
		service.RelayMessage{Type: service.RelayMessageType, Status: "success", OrderNumber: "LN0000000000000000XXXXXX"})
	if err != nil {
		t.Fatalf("HandleRelay: %v", err)
	}
	if finalized {
		t.Fatal("stale order number must be ignored")
	}
	if got.Payment != service.PaymentAwaiting || got.Step != service.StepPayment {
		t.Fatalf("state changed by stale message: %+v", got)
	}
}

func TestRelayFailureKeepsAddress(t *testing.T) {
	f := newCheckoutFixture()
	f.ledger.FinalizeFunc = func(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error) {
		if outcome != service.OutcomeFailure {
			t.Fatalf("outcome = %v", outcome)
		}
		return true, nil
	}

	v := f.toPaymentStep(t)
	got, err := f.svc.HandleRelay(f.ctx(), v.ID, testOrigin,
		service.RelayMessage{Type: service.RelayMessageType, Status: "failed", OrderNumber: v.OrderNumber, Message: "kart reddedildi"})
	if err != nil {
		t.Fatalf("HandleRelay: %v", err)
	}
	if got.Step != service.StepReview || got.Payment != service.PaymentFailed {
		t.Fatalf("unexpected view: %+v", got)
	}
	if got.Address == nil {
		t.Fatal("address selection must survive a failed payment")
	}
	if got.LastError != "kart reddedildi" {
		t.Fatalf("last error = %q", got.LastError)
	}
}

func TestCancelAtPaymentStep(t *testing.T) {
	f := newCheckoutFixture()

	var gotDiag models.PaymentDiag
	f.ledger.FinalizeFunc = func(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error) {
		gotDiag = diag
		if outcome != service.OutcomeFailure {
			t.Fatalf("outcome = %v", outcome)
		}
		return true, nil
	}

	v := f.toPaymentStep(t)
	got, err := f.svc.Cancel(f.ctx(), v.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if gotDiag.Status != "cancelled_by_user" {
		t.Fatalf("diag status = %q", gotDiag.Status)
	}
	if got.Step != service.StepReview || got.Payment != service.PaymentIdle || got.OrderNumber != "" {
		t.Fatalf("unexpected view after cancel: %+v", got)
	}
}

func TestCancelOutsidePaymentStep(t *testing.T) {
	f := newCheckoutFixture()
	v, _ := f.svc.Start(f.ctx())
	if _, err := f.svc.Cancel(f.ctx(), v.ID); !errors.Is(err, service.ErrInvalidStep) {
		t.Fatalf("expected ErrInvalidStep, got %v", err)
	}
}

func TestCloseClearsCartOnlyAfterSuccess(t *testing.T) {
	f := newCheckoutFixture()
	cleared := 0
	f.carts.ClearFunc = func(ctx context.Context, userID uuid.UUID) error {
		cleared++
		return nil
	}
	f.orders.GetByNumberFunc = func(ctx context.Context, orderNumber string) (*models.Order, error) {
		return &models.Order{OrderNumber: orderNumber}, nil
	}

	// закрытие без успеха корзину не трогает
	v, _ := f.svc.Start(f.ctx())
	if err := f.svc.Close(f.ctx(), v.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if cleared != 0 {
		t.Fatal("cart cleared without a successful payment")
	}

	// после успеха — очищает и удаляет сессию
	v = f.toPaymentStep(t)
	_, _ = f.svc.HandleRelay(f.ctx(), v.ID, testOrigin,
		service.RelayMessage{Type: service.RelayMessageType, Status: "success", OrderNumber: v.OrderNumber})
	if err := f.svc.Close(f.ctx(), v.ID); err != nil {
		t.Fatalf("Close after success: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("cleared = %d, want 1", cleared)
	}
	if _, err := f.svc.State(f.ctx(), v.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Fatalf("session must be gone, got %v", err)
	}
}

func TestPayOnEmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.GetFunc = func(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
		return nil, nil
	}

	ctx := f.ctx()
	v, _ := f.svc.Start(ctx)
	_, _ = f.svc.SelectAddress(ctx, v.ID, f.addressID)
	_, _ = f.svc.Next(ctx, v.ID)

	if _, err := f.svc.Pay(ctx, v.ID, "10.0.0.7"); !errors.Is(err, service.ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}
