// Package subscription реализует жизненный цикл подписки: чтение статуса
// с ленивым понижением истёкшего плана, применение покупки и восстановление.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/entitlement"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/metrics"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// Точки входа покупки.
const (
	SourceVerify  = "verify"
	SourceRestore = "restore"
)

// Repository определяет операции хранилища над подпиской пользователя.
type Repository interface {
	// GetUser возвращает пользователя или models.ErrUserNotFound.
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	// UpdateEntitlement атомарно записывает план, дату окончания и токен покупки.
	UpdateEntitlement(ctx context.Context, userUID, plan string, expiry *time.Time, purchaseToken *string) (*models.Entitlement, error)
	// DowngradeExpired переводит истёкший платный план на free.
	DowngradeExpired(ctx context.Context, userUID string, now time.Time) (bool, error)
}

// Cache инвалидирует кешированную статистику.
type Cache interface {
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Service реализует операции над подпиской.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// NewService создаёт сервис подписок. cache может быть nil.
func NewService(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// Status возвращает действующий план пользователя. Если платный план истёк,
// клиент получает free, а понижение записывается в хранилище. Ошибка записи
// только логируется: ответ клиенту от неё не зависит.
func (s *Service) Status(ctx context.Context, userUID string) (models.SubscriptionStatus, error) {
	const op = "subscription.Status"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID))

	user, err := s.getUser(ctx, userUID)
	if err != nil {
		return models.SubscriptionStatus{}, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := entitlement.ParsePlan(user.Plan)
	if err != nil {
		return models.SubscriptionStatus{}, fmt.Errorf("%s: stored plan: %w", op, err)
	}

	now := s.now()
	effective, expired := entitlement.Effective(stored, user.ExpiryDate, now)
	if !expired {
		return models.SubscriptionStatus{
			Plan:       string(effective),
			ExpiryDate: user.ExpiryDate,
			IsPro:      entitlement.IsPro(effective),
		}, nil
	}

	log.Info("subscription expired, downgrading", slog.String("plan", user.Plan))
	changed, err := s.repo.DowngradeExpired(ctx, userUID, now)
	switch {
	case err != nil:
		metrics.Downgrades.WithLabelValues("failed").Inc()
		log.Warn("failed to persist downgrade", sl.Err(err))
	case changed:
		metrics.Downgrades.WithLabelValues("written").Inc()
		s.invalidateStats(ctx, log)
	default:
		metrics.Downgrades.WithLabelValues("skipped").Inc()
	}

	return models.SubscriptionStatus{
		Plan:      string(entitlement.Free),
		IsExpired: true,
	}, nil
}

// Verify применяет новую покупку.
func (s *Service) Verify(ctx context.Context, userUID string, req models.PurchaseRequest) (*models.Entitlement, error) {
	return s.ApplyPurchase(ctx, userUID, req.Plan, req.PurchaseToken, SourceVerify)
}

// Restore повторно применяет ранее совершённую покупку. Повтор с теми же
// данными даёт ту же запись, дата окончания отсчитывается от текущего момента.
func (s *Service) Restore(ctx context.Context, userUID string, req models.PurchaseRequest) (*models.Entitlement, error) {
	return s.ApplyPurchase(ctx, userUID, req.Plan, req.PurchaseToken, SourceRestore)
}

// ApplyPurchase проверяет план, вычисляет дату окончания и одной записью
// сохраняет план, дату и токен покупки. Токен покупки не проверяется у платёжного провайдера.
func (s *Service) ApplyPurchase(ctx context.Context, userUID, rawPlan, purchaseToken, source string) (*models.Entitlement, error) {
	const op = "subscription.ApplyPurchase"
	log := s.log.With(slog.String("op", op), slog.String("user_uid", userUID), slog.String("source", source))

	plan, err := entitlement.ParsePurchasablePlan(rawPlan)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	expiry, err := entitlement.ExpiryFor(plan, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var token *string
	if purchaseToken != "" {
		token = &purchaseToken
	}
	ent, err := s.repo.UpdateEntitlement(ctx, userUID, string(plan), &expiry, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.Purchases.WithLabelValues(string(plan), source).Inc()
	log.Info("purchase applied", slog.String("plan", string(plan)), slog.Time("expiry", expiry))
	s.invalidateStats(ctx, log)
	return ent, nil
}

// Cancel не меняет состояние: подписка остаётся активной до даты окончания
// и не продлевается. Возвращает текущий статус.
func (s *Service) Cancel(ctx context.Context, userUID string) (models.SubscriptionStatus, error) {
	const op = "subscription.Cancel"
	status, err := s.Status(ctx, userUID)
	if err != nil {
		return models.SubscriptionStatus{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription cancelled, will not renew",
		slog.String("op", op), slog.String("user_uid", userUID), slog.String("plan", status.Plan))
	return status, nil
}

func (s *Service) getUser(ctx context.Context, userUID string) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, userUID)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

func (s *Service) invalidateStats(ctx context.Context, log *slog.Logger) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidatePrefix(ctx, models.StatsCachePrefix); err != nil {
		log.Warn("failed to invalidate stats cache", sl.Err(err))
	}
}
