// Package metrics объявляет метрики Prometheus для рассылки уведомлений
// и жизненного цикла подписок.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Результаты отправки на токен.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

var (
	// PushTokens считает отправки по токенам с разбивкой по результату.
	PushTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallpaper",
		Subsystem: "push",
		Name:      "tokens_total",
		Help:      "Push sends per token, by result.",
	}, []string{"result"})

	// PushBatches считает вызовы шлюза с несколькими токенами.
	PushBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallpaper",
		Subsystem: "push",
		Name:      "batches_total",
		Help:      "Multicast gateway calls, by outcome.",
	}, []string{"outcome"})

	// DispatchDuration измеряет длительность полной рассылки.
	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "wallpaper",
		Subsystem: "push",
		Name:      "dispatch_duration_seconds",
		Help:      "Duration of a full dispatch across all batches.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// Downgrades считает ленивые понижения до free и результат их записи.
	Downgrades = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallpaper",
		Subsystem: "entitlement",
		Name:      "downgrades_total",
		Help:      "Lazy expiry downgrades detected on status reads, by write-back outcome.",
	}, []string{"write_back"})

	// Purchases считает применённые покупки по плану и точке входа.
	Purchases = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wallpaper",
		Subsystem: "entitlement",
		Name:      "purchases_total",
		Help:      "Applied purchases, by plan and entry point.",
	}, []string{"plan", "source"})
)
