// Package sender обрабатывает задания рассылки из RabbitMQ.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
	"github.com/magabrotheeeer/wallpaper-backend/internal/services/notification"
)

// Notifier выполняет рассылку.
type Notifier interface {
	SendToAll(ctx context.Context, n models.Notification) (models.DispatchReport, error)
	SendToUser(ctx context.Context, userID string, n models.Notification) (string, error)
}

type Service struct {
	notifier Notifier
	log      *slog.Logger
}

func NewService(notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		notifier: notifier,
		log:      log,
	}
}

// HandleBroadcast разбирает отложенную рассылку всем и выполняет её.
// Частичные отказы попадают в лог, сообщение при этом подтверждается.
func (s *Service) HandleBroadcast(ctx context.Context, body []byte) error {
	const op = "sender.HandleBroadcast"

	var n models.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	report, err := s.notifier.SendToAll(ctx, n)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(slog.String("op", op))
	if n := cancelledTokens(report); n > 0 {
		log.Warn("async broadcast interrupted",
			slog.Int("cancelled", n),
			slog.Int("targeted", report.TotalTargeted))
	}
	log.Info("async broadcast finished",
		slog.Int("notified", report.SuccessCount),
		slog.Int("targeted", report.TotalTargeted),
		slog.Int("failed", report.FailureCount))
	return nil
}

// cancelledTokens считает токены, до которых рассылка не дошла из-за остановки.
func cancelledTokens(report models.DispatchReport) int {
	n := 0
	for _, f := range report.Failures {
		if f.Reason == notification.ReasonCancelled {
			n++
		}
	}
	return n
}

// HandleReminder отправляет напоминание об окончании подписки. Если пользователь
// исчез или удалил push-токен, задание отбрасывается без ошибки.
func (s *Service) HandleReminder(ctx context.Context, body []byte) error {
	const op = "sender.HandleReminder"

	var job models.ReminderJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	log := s.log.With(slog.String("op", op), slog.String("user_id", job.UserID))

	_, err := s.notifier.SendToUser(ctx, job.UserID, job.Notification)
	switch {
	case errors.Is(err, models.ErrUserNotFound), errors.Is(err, models.ErrNoPushToken):
		log.Info("reminder dropped", slog.String("reason", err.Error()))
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("reminder sent")
	return nil
}
