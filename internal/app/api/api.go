// Package api собирает HTTP API: хранилище, кэш, брокер, push-шлюз и маршруты.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/wallpaper-backend/internal/cache"
	"github.com/magabrotheeeer/wallpaper-backend/internal/config"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/jwt"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/migrations"
	"github.com/magabrotheeeer/wallpaper-backend/internal/push"
	"github.com/magabrotheeeer/wallpaper-backend/internal/rabbitmq"
	notificationservice "github.com/magabrotheeeer/wallpaper-backend/internal/services/notification"
	statsservice "github.com/magabrotheeeer/wallpaper-backend/internal/services/stats"
	subservice "github.com/magabrotheeeer/wallpaper-backend/internal/services/subscription"
	"github.com/magabrotheeeer/wallpaper-backend/internal/storage/repository"
)

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.api.New"

	db, err := repository.New(cfg.StorageConnectionString, cfg.StorageTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQPrefetch, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gateway, err := push.NewFCM(ctx, cfg.Push)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dispatcher := notificationservice.NewDispatcher(gateway, cfg.BatchSize, cfg.Parallelism, cfg.SendTimeout, logger)
	notificationService := notificationservice.NewService(db, dispatcher, rabbitmq.NewPublisher(ch), logger)
	subscriptionService := subservice.NewService(db, cacheRedis, logger)
	statsService := statsservice.NewService(db, cacheRedis, cfg.StatsCacheTTL, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		DB:            db,
		Notifications: notificationService,
		Subscriptions: subscriptionService,
		Stats:         statsService,
		RateLimit:     cfg.RateLimit,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
