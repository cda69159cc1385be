package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abdullah-koca/lunora/config"
	"github.com/abdullah-koca/lunora/internal/database"
	"github.com/abdullah-koca/lunora/internal/handlers"
	"github.com/abdullah-koca/lunora/internal/logger"
	"github.com/abdullah-koca/lunora/internal/migrate"
	"github.com/abdullah-koca/lunora/internal/paytr"
	"github.com/abdullah-koca/lunora/internal/pricing"
	"github.com/abdullah-koca/lunora/internal/producer"
	"github.com/abdullah-koca/lunora/internal/repository"
	"github.com/abdullah-koca/lunora/internal/router"
	"github.com/abdullah-koca/lunora/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	if err := migrate.MigrateStoreDB(context.Background(), db, log, migrate.DefaultMigrateOptions()); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	repos := repository.New(db)

	paytrClient := paytr.NewClient(paytr.Config{
		MerchantID:   cfg.PayTR.MerchantID,
		MerchantKey:  cfg.PayTR.MerchantKey,
		MerchantSalt: cfg.PayTR.MerchantSalt,
		APIBase:      cfg.PayTR.APIBase,
		OKURL:        cfg.PayTR.OKURL,
		FailURL:      cfg.PayTR.FailURL,
		CallbackURL:  cfg.PayTR.CallbackURL,
		TimeoutLimit: cfg.PayTR.TimeoutLimit,
		DebugOn:      cfg.PayTR.DebugOn,
		TestMode:     cfg.PayTR.TestMode,
	}, log)

	// Event bus is optional (nil disables publishing)
	var events service.EventBus
	var emailProducer *producer.EmailProducer
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		emailProducer = producer.NewEmailProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer emailProducer.Close()
		events = emailProducer
	} else {
		log.Warn("kafka not configured, order confirmation emails disabled")
	}

	calc := pricing.NewCalculator()
	ledger := service.NewOrderLedger(repos.Orders, log)
	inventory := service.NewInventoryAdjuster(repos.Products, log)
	sessions := service.NewSessionStore(time.Hour, log)

	checkout := service.NewCheckoutService(
		sessions, paytrClient, ledger, inventory,
		repos.Orders, repos.Carts, repos.Addresses,
		calc, events, cfg.PublicOrigin, log,
	)
	callback := service.NewCallbackService(paytrClient, ledger, repos.Orders, inventory, events, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions.StartJanitor(ctx)

	r := router.Router(cfg, router.Handlers{
		Checkout: handlers.NewCheckoutHandler(checkout, log),
		PayTR:    handlers.NewPayTRHandler(paytrClient, callback, log),
		Cart:     handlers.NewCartHandler(repos.Carts, repos.Products, calc, log),
		Address:  handlers.NewAddressHandler(repos.Addresses, log),
		Catalog:  handlers.NewCatalogHandler(repos.Products, log),
		Orders:   handlers.NewOrderHandler(repos.Orders, log),
	})

	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting storefront HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down storefront HTTP server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("storefront HTTP server stopped gracefully")
}
