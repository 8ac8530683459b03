// Package sender собирает потребителя очередей уведомлений.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/wallpaper-backend/internal/config"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/push"
	"github.com/magabrotheeeer/wallpaper-backend/internal/rabbitmq"
	notificationservice "github.com/magabrotheeeer/wallpaper-backend/internal/services/notification"
	senderservice "github.com/magabrotheeeer/wallpaper-backend/internal/services/sender"
	"github.com/magabrotheeeer/wallpaper-backend/internal/storage/repository"
)

type App struct {
	db            *repository.Storage
	conn          *amqp.Connection
	ch            *amqp.Channel
	workers       int
	senderService *senderservice.Service
	logger        *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	db, err := repository.New(cfg.StorageConnectionString, cfg.StorageTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQPrefetch, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gateway, err := push.NewFCM(ctx, cfg.Push)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dispatcher := notificationservice.NewDispatcher(gateway, cfg.BatchSize, cfg.Parallelism, cfg.SendTimeout, logger)
	notifier := notificationservice.NewService(db, dispatcher, rabbitmq.NewPublisher(ch), logger)

	return &App{
		db:            db,
		conn:          conn,
		ch:            ch,
		workers:       cfg.RabbitMQPrefetch,
		senderService: senderservice.NewService(notifier, logger),
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	broadcastDone, err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueBroadcast, 1, a.senderService.HandleBroadcast)
	if err != nil {
		a.logger.Error("failed to start broadcast consumer", sl.Err(err))
		return err
	}

	reminderDone, err := rabbitmq.ConsumerMessage(ctx, a.logger, a.ch, rabbitmq.QueueExpiring, a.workers, a.senderService.HandleReminder)
	if err != nil {
		a.logger.Error("failed to start reminder consumer", sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")
	<-broadcastDone
	<-reminderDone

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}

	return nil
}
