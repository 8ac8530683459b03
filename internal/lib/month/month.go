// Package month содержит вспомогательные функции для работы с календарными периодами.
package month

import (
	"time"
)

// Start возвращает начало календарного месяца, в который попадает t,
// в часовом поясе t.
func Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// ParsePeriodStart разбирает дату начала периода в формате 2006-01-02.
// Пустая строка означает начало текущего месяца относительно now.
func ParsePeriodStart(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return Start(now), nil
	}
	return time.ParseInLocation(time.DateOnly, s, now.Location())
}
