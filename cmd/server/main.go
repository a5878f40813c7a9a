package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/loyalty-rewards/internal/account"
	"github.com/iliyamo/loyalty-rewards/internal/config"
	"github.com/iliyamo/loyalty-rewards/internal/database"
	"github.com/iliyamo/loyalty-rewards/internal/handler"
	"github.com/iliyamo/loyalty-rewards/internal/logger"
	"github.com/iliyamo/loyalty-rewards/internal/middleware"
	"github.com/iliyamo/loyalty-rewards/internal/publisher"
	"github.com/iliyamo/loyalty-rewards/internal/queue"
	"github.com/iliyamo/loyalty-rewards/internal/repository"
	"github.com/iliyamo/loyalty-rewards/internal/router"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := database.Migrate(migrateCtx, db); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("migrate schema")
	}
	cancel()

	var (
		users    = repository.NewUserRepo(db)
		tokens   = repository.NewTokenRepo(db)
		codes    = repository.NewVerificationRepo(db)
		profiles = repository.NewProfileRepo(db)
		loyalty  = repository.NewLoyaltyRepo(db)
		roles    = repository.NewRoleRepo(db)
		catalog  = repository.NewCatalogRepo(db)
		history  = repository.NewHistoryRepo(db)
		inbox    = repository.NewNotificationRepo(db)
	)
	events := publisher.New(cfg.AMQPURL, log)

	opts := router.Options{JWTSecret: cfg.JWTSecret, Roles: roles, DB: db}
	if rdb := config.NewRedisClient(); rdb != nil {
		defer rdb.Close()
		opts.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
		opts.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	} else {
		log.Warn().Msg("redis unavailable, running without response cache and rate limiting")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			log.Info().Str("method", v.Method).Str("uri", v.URI).
				Int("status", v.Status).Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))

	router.Register(e, router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, users, tokens, codes, events, log),
		Member:  handler.NewMemberHandler(profiles, loyalty, roles, cfg.Redemption),
		Catalog: handler.NewCatalogHandler(catalog),
		History: handler.NewHistoryHandler(history),
		Inbox:   handler.NewInboxHandler(inbox),
		Till:    handler.NewTillHandler(loyalty),
		Account: handler.NewAccountHandler(account.NewDeleter(db, events, log)),
	}, opts)

	consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: "logs", Log: log}
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("event consumer stopped")
		}
	}()

	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
