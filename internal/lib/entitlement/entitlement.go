// Package entitlement содержит чистые функции жизненного цикла подписки:
// разбор плана, вычисление даты окончания и действующего плана с учётом
// истечения срока. Функции не читают системные часы, время передаётся явно.
package entitlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// Plan - тариф подписки.
type Plan string

// Известные тарифы.
const (
	Free     Plan = "free"
	Weekly   Plan = "weekly"
	Monthly  Plan = "monthly"
	Yearly   Plan = "yearly"
	Lifetime Plan = "lifetime"
)

// LifetimeExpiry - дата окончания пожизненной подписки. Больше любого реального "сейчас".
var LifetimeExpiry = time.Date(2100, time.January, 1, 0, 0, 0, 0, time.UTC)

// Plans перечисляет все тарифы в порядке вывода статистики.
func Plans() []Plan {
	return []Plan{Free, Weekly, Monthly, Yearly, Lifetime}
}

// ParsePlan приводит строку к тарифу. "annual" считается синонимом "yearly".
func ParsePlan(s string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(s))); p {
	case Free, Weekly, Monthly, Yearly, Lifetime:
		return p, nil
	case "annual":
		return Yearly, nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrInvalidPlan, s)
	}
}

// ParsePurchasablePlan разбирает план покупки. Free купить нельзя.
func ParsePurchasablePlan(s string) (Plan, error) {
	p, err := ParsePlan(s)
	if err != nil {
		return "", err
	}
	if p == Free {
		return "", fmt.Errorf("%w: free is not a purchase target", models.ErrInvalidPlan)
	}
	return p, nil
}

// ExpiryFor возвращает дату окончания покупки плана, сделанной в момент now.
func ExpiryFor(p Plan, now time.Time) (time.Time, error) {
	switch p {
	case Weekly:
		return now.Add(7 * 24 * time.Hour), nil
	case Monthly:
		return now.Add(30 * 24 * time.Hour), nil
	case Yearly:
		return now.Add(365 * 24 * time.Hour), nil
	case Lifetime:
		return LifetimeExpiry, nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", models.ErrInvalidPlan, p)
	}
}

// Effective вычисляет действующий план на момент now.
// Второе значение истинно, если платный план истёк и его нужно понизить до free.
// Платный план без даты окончания никогда не понижается автоматически.
func Effective(p Plan, expiry *time.Time, now time.Time) (Plan, bool) {
	switch p {
	case Lifetime, Free:
		return p, false
	}
	if expiry == nil {
		return p, false
	}
	if expiry.Before(now) {
		return Free, true
	}
	return p, false
}

// IsPro сообщает, относится ли план к платным.
func IsPro(p Plan) bool {
	return p != Free
}
