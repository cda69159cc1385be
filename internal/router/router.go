package router

import (
	"net/http"

	"github.com/abdullah-koca/lunora/config"
	"github.com/abdullah-koca/lunora/internal/dto"
	"github.com/abdullah-koca/lunora/internal/handlers"
	"github.com/abdullah-koca/lunora/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Checkout *handlers.CheckoutHandler
	PayTR    *handlers.PayTRHandler
	Cart     *handlers.CartHandler
	Orders   *handlers.OrderHandler
	Address  *handlers.AddressHandler
	Catalog  *handlers.CatalogHandler
}

func Router(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.Default()

	// без явного списка пускаем только фронтенд
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{cfg.PublicOrigin}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.HeaderUserID, middleware.HeaderUserEmail, middleware.HeaderUserName},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// публичная часть
	api.GET("/config", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.ConfigResponse{
			APIBaseURL: cfg.APIBaseURL,
			TestMode:   cfg.PayTR.TestMode,
		})
	})
	api.GET("/products", h.Catalog.List)
	api.GET("/products/:id", h.Catalog.Get)

	// callback приходит от PayTR, подпись проверяется внутри
	api.POST("/paytr/callback", h.PayTR.Callback)

	// всё остальное требует identity от вышестоящего шлюза
	authed := api.Group("")
	authed.Use(middleware.IdentityRequired())
	{
		authed.POST("/paytr/get-token", h.PayTR.GetToken)

		authed.POST("/checkout", h.Checkout.Start)
		authed.GET("/checkout/:id", h.Checkout.State)
		authed.POST("/checkout/:id/address", h.Checkout.SelectAddress)
		authed.POST("/checkout/:id/next", h.Checkout.Next)
		authed.POST("/checkout/:id/back", h.Checkout.Back)
		authed.POST("/checkout/:id/pay", h.Checkout.Pay)
		authed.POST("/checkout/:id/relay", h.Checkout.Relay)
		authed.POST("/checkout/:id/cancel", h.Checkout.Cancel)
		authed.POST("/checkout/:id/close", h.Checkout.Close)

		authed.GET("/cart", h.Cart.Get)
		authed.PUT("/cart", h.Cart.Update)

		authed.GET("/addresses", h.Address.List)
		authed.POST("/addresses", h.Address.Create)
		authed.POST("/addresses/:id/default", h.Address.SetDefault)

		authed.GET("/orders", h.Orders.List)
		authed.GET("/orders/:number", h.Orders.Get)
	}

	return r
}
