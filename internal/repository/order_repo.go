package repository

import (
	"context"
	"errors"

	"github.com/abdullah-koca/lunora/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int64, error)

	// FinalizeFromPending атомарно переводит pending-заказ в терминальную пару
	// статусов. Возвращает false, если заказ уже терминален (или не существует) —
	// это compare-and-set, единственный примитив синхронизации между
	// relay-сообщением и серверным callback.
	FinalizeFromPending(ctx context.Context, orderNumber string, pay models.PaymentStatus, status models.OrderStatus, notes string) (bool, error)

	WithTx(ctx context.Context, fn func(tx OrderRepo) error) error
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&ord, "order_number = ?", orderNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var list []*models.Order
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) FinalizeFromPending(ctx context.Context, orderNumber string, pay models.PaymentStatus, status models.OrderStatus, notes string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_number = ? AND payment_status = ?", orderNumber, models.PaymentStatusPending).
		Updates(map[string]any{
			"payment_status": pay,
			"status":         status,
			"notes":          notes,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) WithTx(ctx context.Context, fn func(tx OrderRepo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&orderRepo{db: tx})
	})
}
