package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// GroupUsersByEffectivePlan одним запросом группирует обычных пользователей
// по действующему на момент now плану. Истёкший платный план считается free,
// платный план без даты окончания остаётся своим. NewUsers в каждой группе
// считает пользователей, созданных не раньше periodStart.
func (s *Storage) GroupUsersByEffectivePlan(ctx context.Context, now, periodStart time.Time) ([]models.PlanCount, error) {
	const op = "storage.GroupUsersByEffectivePlan"
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `SELECT
			      CASE
			          WHEN plan = 'free' THEN 'free'
			          WHEN plan = 'lifetime' THEN 'lifetime'
			          WHEN expiry_date IS NULL THEN plan
			          WHEN expiry_date >= $1 THEN plan
			          ELSE 'free'
			      END AS effective_plan,
			      COUNT(*) AS total,
			      COUNT(*) FILTER (WHERE created_at >= $2) AS new_users
			  FROM users
			  WHERE role = 'user'
			  GROUP BY effective_plan`
	rows, err := s.DB.QueryContext(ctx, query, now, periodStart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []models.PlanCount
	for rows.Next() {
		var pc models.PlanCount
		if err := rows.Scan(&pc.Plan, &pc.Count, &pc.NewUsers); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
