// Package scheduler по расписанию находит подписки, которые скоро закончатся,
// и ставит в очередь напоминания для notification-sender.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
	"github.com/magabrotheeeer/wallpaper-backend/internal/rabbitmq"
)

type Repository interface {
	FindExpiringUsers(ctx context.Context, from, to time.Time) ([]models.ExpiringUser, error)
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

type Service struct {
	repo      Repository
	publisher Publisher
	window    time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewService создаёт планировщик напоминаний. window задаёт, насколько
// заранее предупреждать об окончании подписки.
func NewService(repo Repository, publisher Publisher, window time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		window:    window,
		log:       log,
		now:       time.Now,
	}
}

// Run запускает cron по spec и блокируется до отмены ctx.
// Задание, которое выполняется в момент отмены, дорабатывает.
func (s *Service) Run(ctx context.Context, spec string) error {
	const op = "scheduler.Run"

	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		if _, err := s.PublishExpiringReminders(ctx); err != nil {
			s.log.Error("reminder run failed", sl.Err(err))
		}
	})
	if err != nil {
		return fmt.Errorf("%s: invalid spec %q: %w", op, spec, err)
	}

	s.log.Info("scheduler started", slog.String("spec", spec), slog.Duration("window", s.window))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

// PublishExpiringReminders публикует по заданию на каждого пользователя,
// чья подписка закончится в ближайшее окно. Возвращает число опубликованных заданий.
func (s *Service) PublishExpiringReminders(ctx context.Context) (int, error) {
	const op = "scheduler.PublishExpiringReminders"
	log := s.log.With(slog.String("op", op))

	now := s.now().UTC()
	users, err := s.repo.FindExpiringUsers(ctx, now, now.Add(s.window))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		log.Info("no expiring subscriptions found")
		return 0, nil
	}

	published := 0
	for _, u := range users {
		if err := s.publisher.Publish(ctx, rabbitmq.RoutingExpiring, ReminderFor(u)); err != nil {
			log.Error("failed to publish reminder", slog.String("user_id", u.UID), sl.Err(err))
			continue
		}
		published++
	}
	log.Info("reminders published", slog.Int("found", len(users)), slog.Int("published", published))
	return published, nil
}

// ReminderFor формирует напоминание об окончании подписки.
func ReminderFor(u models.ExpiringUser) models.ReminderJob {
	return models.ReminderJob{
		UserID: u.UID,
		Notification: models.Notification{
			Title: "Your subscription ends soon",
			Body: fmt.Sprintf("Your %s plan expires on %s. Renew to keep your Pro wallpapers.",
				u.Plan, u.ExpiryDate.UTC().Format("Jan 2, 15:04 MST")),
			Data: map[string]string{
				"type":        "subscription_expiring",
				"plan":        u.Plan,
				"expiry_date": u.ExpiryDate.UTC().Format(time.RFC3339),
			},
		},
	}
}
