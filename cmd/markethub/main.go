package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/markethub/markethub/internal/cache"
	"github.com/markethub/markethub/internal/config"
	"github.com/markethub/markethub/internal/es"
	"github.com/markethub/markethub/internal/httpserver"
	"github.com/markethub/markethub/internal/logging"
	"github.com/markethub/markethub/internal/middleware/loggingmw"
	"github.com/markethub/markethub/internal/models"
	"github.com/markethub/markethub/internal/mykafka"
	"github.com/markethub/markethub/internal/repo"
	"github.com/markethub/markethub/internal/service"
	"github.com/markethub/markethub/pkg/db"
)

func main() {
	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}
	if err := database.AutoMigrate(
		&models.Vendor{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = mykafka.NewProducer(cfg.KafkaBrokers)
		if err != nil {
			log.Fatalf("kafka init error: %v", err)
		}
	} else {
		logger.Warn("KAFKA_BROKERS not set, events disabled")
	}

	var productCache *cache.ProductCache
	if cfg.RedisURL != "" {
		productCache, err = cache.New(cfg.RedisURL, time.Minute)
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
	} else {
		logger.Warn("REDIS_URL not set, product cache disabled")
	}

	r := repo.New(database)

	var publisher service.Publisher
	if producer != nil {
		publisher = producer
	}

	orderSvc := &service.OrderService{Repo: r, Producer: publisher}
	cartSvc := &service.CartService{Repo: r, Producer: publisher}
	catalogSvc := &service.CatalogService{Repo: r, Cache: productCache, Producer: publisher}

	deps := &httpserver.Deps{
		OrderHandler:   &httpserver.OrderHTTP{Svc: orderSvc},
		CartHandler:    &httpserver.CartHTTP{Svc: cartSvc},
		ProductHandler: &httpserver.ProductHTTP{Svc: catalogSvc},
		JWTSecret:      cfg.JWTSecret,
	}

	if cfg.ESURL != "" {
		esClient, err := es.NewClient(&cfg)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
		deps.SearchHandler = &httpserver.SearchHTTP{ES: esClient, Index: cfg.ESIndex}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	httpserver.Register(e, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}
	if productCache != nil {
		if err := productCache.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
