package service

import (
	"context"
	"time"
)

type OrderConfirmedEvent struct {
	OrderNumber string    `json:"order_number"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	TotalCents  int64     `json:"total_cents"`
	Currency    string    `json:"currency"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type EventBus interface {
	PublishOrderConfirmed(ctx context.Context, e OrderConfirmedEvent) error
}
