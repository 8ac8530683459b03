// Package stats считает сводную статистику пользователей по действующим планам.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/entitlement"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// Repository группирует пользователей по действующему плану одним запросом.
type Repository interface {
	GroupUsersByEffectivePlan(ctx context.Context, now, periodStart time.Time) ([]models.PlanCount, error)
}

// Cache хранит готовую статистику.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// NewService создаёт сервис статистики. При nil cache или нулевом ttl кеш не используется.
func NewService(repo Repository, cache Cache, ttl time.Duration, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
		log:   log,
		now:   time.Now,
	}
}

// Overview возвращает статистику на текущий момент. Ошибка хранилища
// возвращается как *models.AggregationError, нулевые счётчики вместо неё не отдаются.
func (s *Service) Overview(ctx context.Context, periodStart time.Time) (models.Stats, error) {
	const op = "stats.Overview"
	log := s.log.With(slog.String("op", op))

	key := models.StatsCachePrefix + periodStart.UTC().Format(time.DateOnly)
	if s.cacheEnabled() {
		var cached models.Stats
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			log.Warn("failed to read stats cache", sl.Err(err))
		}
		if found {
			return cached, nil
		}
	}

	rows, err := s.repo.GroupUsersByEffectivePlan(ctx, s.now(), periodStart)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, &models.AggregationError{Err: err})
	}
	st, err := Summarize(rows, periodStart)
	if err != nil {
		return models.Stats{}, fmt.Errorf("%s: %w", op, &models.AggregationError{Err: err})
	}

	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, key, st, s.ttl); err != nil {
			log.Warn("failed to cache stats", sl.Err(err))
		}
	}
	return st, nil
}

// Summarize собирает статистику из сгруппированных строк. Итоги считаются
// по тем же строкам, поэтому pro + free = total = сумма разбивки.
// В разбивке присутствует каждый план, даже с нулём.
func Summarize(rows []models.PlanCount, periodStart time.Time) (models.Stats, error) {
	st := models.Stats{
		PeriodStart: periodStart,
		Breakdown:   make(map[string]int, len(entitlement.Plans())),
	}
	for _, p := range entitlement.Plans() {
		st.Breakdown[string(p)] = 0
	}

	for _, r := range rows {
		plan, err := entitlement.ParsePlan(r.Plan)
		if err != nil {
			return models.Stats{}, err
		}
		st.Breakdown[string(plan)] += r.Count
		st.TotalUsers += r.Count
		st.NewUsersInPeriod += r.NewUsers
		if entitlement.IsPro(plan) {
			st.ProUsers += r.Count
		} else {
			st.FreeUsers += r.Count
		}
	}
	return st, nil
}

func (s *Service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}
