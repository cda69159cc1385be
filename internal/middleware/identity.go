package middleware

import (
	"net/http"
	"strings"

	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Заголовки, которые проставляет вышестоящий шлюз после проверки токена.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// IdentityRequired читает identity покупателя из доверенных заголовков и
// кладёт её в request context. Сервис сам токены не проверяет — это работа
// шлюза перед ним.
func IdentityRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		email := strings.TrimSpace(c.GetHeader(HeaderUserEmail))
		if rawID == "" || email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing identity headers"))
			return
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid user id"))
			return
		}

		ctx := service.WithIdentity(c.Request.Context(), service.Identity{
			ID:    id,
			Email: email,
			Name:  strings.TrimSpace(c.GetHeader(HeaderUserName)),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
