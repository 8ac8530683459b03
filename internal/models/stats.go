package models

import "time"

// PlanCount содержит количество пользователей с одним действующим планом.
// NewUsers считает только созданных не раньше начала периода.
type PlanCount struct {
	Plan     string
	Count    int
	NewUsers int
}

// Stats содержит сводную статистику по пользователям (без администраторов).
type Stats struct {
	TotalUsers       int            `json:"total_users"`
	ProUsers         int            `json:"pro_users"`
	FreeUsers        int            `json:"free_users"`
	NewUsersInPeriod int            `json:"new_users_in_period"`
	PeriodStart      time.Time      `json:"period_start"`
	Breakdown        map[string]int `json:"subscription_breakdown"`
}

// StatsCachePrefix префикс ключей кеша сводной статистики.
// Любая запись плана пользователя инвалидирует все ключи с этим префиксом.
const StatsCachePrefix = "stats:overview:"
