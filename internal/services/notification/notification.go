// Package notification рассылает push-уведомления: определяет получателей,
// делит токены на пакеты и собирает отчёт о частичных отказах.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
	"github.com/magabrotheeeer/wallpaper-backend/internal/rabbitmq"
)

// Publisher ставит задание рассылки в очередь.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Service объединяет Resolver и Dispatcher.
type Service struct {
	repo       UserRepository
	resolver   *Resolver
	dispatcher *Dispatcher
	publisher  Publisher
	log        *slog.Logger
}

// NewService создаёт сервис уведомлений. publisher нужен только для асинхронной рассылки и может быть nil.
func NewService(repo UserRepository, dispatcher *Dispatcher, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		resolver:   NewResolver(repo),
		dispatcher: dispatcher,
		publisher:  publisher,
		log:        log,
	}
}

// SendToAll рассылает уведомление всем пользователям с push-токеном.
// Ошибка возвращается только если не удалось получить список получателей,
// отказы отдельных токенов отражаются в отчёте.
func (s *Service) SendToAll(ctx context.Context, n models.Notification) (models.DispatchReport, error) {
	const op = "notification.SendToAll"
	log := s.log.With(slog.String("op", op))

	recipients, err := s.resolver.Resolve(ctx, models.Broadcast())
	if err != nil {
		return models.DispatchReport{}, fmt.Errorf("%s: %w", op, err)
	}

	tokens := make([]string, len(recipients))
	owners := make(map[string]string, len(recipients))
	for i, r := range recipients {
		tokens[i] = r.Token
		owners[r.Token] = r.UserID
	}

	report := s.dispatcher.Dispatch(ctx, tokens, n)
	for i := range report.Failures {
		report.Failures[i].UserID = owners[report.Failures[i].Token]
	}
	log.Info("broadcast sent",
		slog.Int("notified", report.SuccessCount),
		slog.Int("targeted", report.TotalTargeted))
	return report, nil
}

// SendToUser отправляет уведомление одному пользователю.
// models.ErrUserNotFound и models.ErrNoPushToken возвращаются без подмены.
func (s *Service) SendToUser(ctx context.Context, userID string, n models.Notification) (string, error) {
	const op = "notification.SendToUser"

	recipients, err := s.resolver.Resolve(ctx, models.SingleUser(userID))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, err := s.dispatcher.SendToToken(ctx, recipients[0].Token, n)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("notification sent to user", slog.String("op", op), slog.String("user_id", userID))
	return id, nil
}

// SendTest отправляет уведомление на произвольный токен без проверки владельца.
func (s *Service) SendTest(ctx context.Context, token string, n models.Notification) (string, error) {
	const op = "notification.SendTest"

	id, err := s.dispatcher.SendToToken(ctx, token, n)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("test notification sent", slog.String("op", op), sl.Token(token))
	return id, nil
}

// EnqueueBroadcast ставит рассылку всем в очередь для notification-sender.
func (s *Service) EnqueueBroadcast(ctx context.Context, n models.Notification) error {
	const op = "notification.EnqueueBroadcast"
	if s.publisher == nil {
		return fmt.Errorf("%s: async dispatch is not configured", op)
	}
	if err := s.publisher.Publish(ctx, rabbitmq.RoutingBroadcast, n); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("broadcast enqueued", slog.String("op", op))
	return nil
}

// RegisterPushToken сохраняет push-токен устройства пользователя, заменяя прежний.
func (s *Service) RegisterPushToken(ctx context.Context, userID, token string) error {
	const op = "notification.RegisterPushToken"
	if err := s.repo.SetPushToken(ctx, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("push token registered", slog.String("op", op), slog.String("user_id", userID), sl.Token(token))
	return nil
}
