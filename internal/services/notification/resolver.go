package notification

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// UserRepository отдаёт пользователей и их push-токены.
type UserRepository interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	FindUsersWithToken(ctx context.Context) ([]models.Recipient, error)
	SetPushToken(ctx context.Context, userUID, token string) error
}

// Resolver превращает цель рассылки в список получателей.
type Resolver struct {
	repo UserRepository
}

func NewResolver(repo UserRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve для broadcast возвращает всех обычных пользователей с push-токеном.
// Для одного пользователя различает отсутствие пользователя (models.ErrUserNotFound)
// и отсутствие токена (models.ErrNoPushToken).
func (r *Resolver) Resolve(ctx context.Context, target models.Target) ([]models.Recipient, error) {
	const op = "notification.Resolve"

	switch target.Kind {
	case models.TargetBroadcast:
		recipients, err := r.repo.FindUsersWithToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return recipients, nil
	case models.TargetUser:
		user, err := r.repo.GetUser(ctx, target.UserID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if user.IsAdmin() {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUserNotFound)
		}
		if !user.HasPushToken() {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNoPushToken)
		}
		return []models.Recipient{{UserID: user.UID, Token: *user.PushToken}}, nil
	default:
		return nil, fmt.Errorf("%s: unknown target kind %q", op, target.Kind)
	}
}
