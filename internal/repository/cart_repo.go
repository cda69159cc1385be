package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/abdullah-koca/lunora/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepo interface {
	// Get возвращает пустую корзину, если строки ещё нет.
	Get(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Save(ctx context.Context, userID uuid.UUID, items []models.CartItem) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) Get(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var c models.Cart
	err := r.db.WithContext(ctx).First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.CartItem{}, nil
	}
	if err != nil {
		return nil, err
	}

	var items []models.CartItem
	if err := json.Unmarshal([]byte(c.Items), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *cartRepo) Save(ctx context.Context, userID uuid.UUID, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{"items": string(raw), "updated_at": time.Now()}),
	}).Create(&models.Cart{
		UserID:    userID,
		Items:     string(raw),
		UpdatedAt: time.Now(),
	}).Error
}

func (r *cartRepo) Clear(ctx context.Context, userID uuid.UUID) error {
	return r.Save(ctx, userID, []models.CartItem{})
}
