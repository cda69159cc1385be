package service

import (
	"context"

	"github.com/google/uuid"
)

// Identity — явный контекст покупателя. Снимается один раз при старте
// checkout-сессии и дальше не перечитывается.
type Identity struct {
	ID    uuid.UUID
	Email string
	Name  string
}

type ctxKey string

const ctxIdentityKey ctxKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentityKey, id)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxIdentityKey).(Identity)
	return v, ok
}
