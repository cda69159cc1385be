package service_test

import (
	"context"

	"github.com/abdullah-koca/lunora/internal/models"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/repository"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/google/uuid"
)

// Моки для зависимостей сервисов

// MockOrderRepo
type MockOrderRepo struct {
	CreateFunc              func(ctx context.Context, o *models.Order) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumberFunc         func(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUserFunc          func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int64, error)
	FinalizeFromPendingFunc func(ctx context.Context, orderNumber string, pay models.PaymentStatus, status models.OrderStatus, notes string) (bool, error)
}

func (m *MockOrderRepo) Create(ctx context.Context, o *models.Order) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, o)
	}
	return nil
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockOrderRepo) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if m.GetByNumberFunc != nil {
		return m.GetByNumberFunc(ctx, orderNumber)
	}
	return nil, nil
}

func (m *MockOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int64, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID, limit, offset)
	}
	return nil, 0, nil
}

func (m *MockOrderRepo) FinalizeFromPending(ctx context.Context, orderNumber string, pay models.PaymentStatus, status models.OrderStatus, notes string) (bool, error) {
	if m.FinalizeFromPendingFunc != nil {
		return m.FinalizeFromPendingFunc(ctx, orderNumber, pay, status, notes)
	}
	return false, nil
}

func (m *MockOrderRepo) WithTx(ctx context.Context, fn func(tx repository.OrderRepo) error) error {
	return fn(m)
}

// MockCartRepo
type MockCartRepo struct {
	GetFunc   func(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	SaveFunc  func(ctx context.Context, userID uuid.UUID, items []models.CartItem) error
	ClearFunc func(ctx context.Context, userID uuid.UUID) error
}

func (m *MockCartRepo) Get(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockCartRepo) Save(ctx context.Context, userID uuid.UUID, items []models.CartItem) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, userID, items)
	}
	return nil
}

func (m *MockCartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, userID)
	}
	return nil
}

// MockAddressRepo
type MockAddressRepo struct {
	CreateFunc         func(ctx context.Context, a *models.Address) error
	GetByIDForUserFunc func(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	ListByUserFunc     func(ctx context.Context, userID uuid.UUID) ([]*models.Address, error)
	SetDefaultFunc     func(ctx context.Context, id, userID uuid.UUID) error
	ClearDefaultFunc   func(ctx context.Context, userID uuid.UUID) error
}

func (m *MockAddressRepo) Create(ctx context.Context, a *models.Address) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	return nil
}

func (m *MockAddressRepo) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	if m.GetByIDForUserFunc != nil {
		return m.GetByIDForUserFunc(ctx, id, userID)
	}
	return nil, nil
}

func (m *MockAddressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Address, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockAddressRepo) SetDefault(ctx context.Context, id, userID uuid.UUID) error {
	if m.SetDefaultFunc != nil {
		return m.SetDefaultFunc(ctx, id, userID)
	}
	return nil
}

func (m *MockAddressRepo) ClearDefault(ctx context.Context, userID uuid.UUID) error {
	if m.ClearDefaultFunc != nil {
		return m.ClearDefaultFunc(ctx, userID)
	}
	return nil
}

// MockBroker
type MockBroker struct {
	GetTokenFunc func(ctx context.Context, req paytr.TokenRequest) (*paytr.TokenResponse, error)
}

func (m *MockBroker) GetToken(ctx context.Context, req paytr.TokenRequest) (*paytr.TokenResponse, error) {
	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx, req)
	}
	return &paytr.TokenResponse{Token: "tok", MerchantOID: req.MerchantOID, IframeURL: "https://www.paytr.com/odeme/guvenli/tok"}, nil
}

// MockLedger
type MockLedger struct {
	CreatePendingOrderFunc func(ctx context.Context, in service.CreatePendingOrderInput) (*models.Order, error)
	FinalizeFunc           func(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error)
}

func (m *MockLedger) CreatePendingOrder(ctx context.Context, in service.CreatePendingOrderInput) (*models.Order, error) {
	if m.CreatePendingOrderFunc != nil {
		return m.CreatePendingOrderFunc(ctx, in)
	}
	return &models.Order{OrderNumber: in.OrderNumber}, nil
}

func (m *MockLedger) Finalize(ctx context.Context, orderNumber string, outcome service.Outcome, diag models.PaymentDiag) (bool, error) {
	if m.FinalizeFunc != nil {
		return m.FinalizeFunc(ctx, orderNumber, outcome, diag)
	}
	return true, nil
}

// MockAdjuster
type MockAdjuster struct {
	AdjustForOrderFunc func(ctx context.Context, ord *models.Order)
}

func (m *MockAdjuster) AdjustForOrder(ctx context.Context, ord *models.Order) {
	if m.AdjustForOrderFunc != nil {
		m.AdjustForOrderFunc(ctx, ord)
	}
}

// MockBus
type MockBus struct {
	PublishOrderConfirmedFunc func(ctx context.Context, e service.OrderConfirmedEvent) error
}

func (m *MockBus) PublishOrderConfirmed(ctx context.Context, e service.OrderConfirmedEvent) error {
	if m.PublishOrderConfirmedFunc != nil {
		return m.PublishOrderConfirmedFunc(ctx, e)
	}
	return nil
}

// MockVerifier
type MockVerifier struct {
	VerifyFunc func(n paytr.CallbackNotification) bool
}

func (m *MockVerifier) VerifyCallbackHash(n paytr.CallbackNotification) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(n)
	}
	return true
}
