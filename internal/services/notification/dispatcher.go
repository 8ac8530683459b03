package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/metrics"
	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
	"github.com/magabrotheeeer/wallpaper-backend/internal/models"
)

// ReasonCancelled причина отказа для токенов пакетов, которые не успели начаться до отмены.
const ReasonCancelled = "dispatch cancelled"

// Gateway отправляет уведомления во внешний push-сервис.
type Gateway interface {
	// SendMulticast отправляет один пакет. Результаты идут в порядке tokens,
	// ошибка означает отказ всего пакета.
	SendMulticast(ctx context.Context, tokens []string, n models.Notification) ([]models.SendResult, error)
	SendSingle(ctx context.Context, token string, n models.Notification) (string, error)
}

// Dispatcher рассылает уведомление по токенам пакетами ограниченного размера.
type Dispatcher struct {
	gateway     Gateway
	batchSize   int
	parallelism int
	sendTimeout time.Duration
	log         *slog.Logger
}

// NewDispatcher создаёт диспетчер. Некорректные размеры заменяются на 1.
func NewDispatcher(gateway Gateway, batchSize, parallelism int, sendTimeout time.Duration, log *slog.Logger) *Dispatcher {
	if batchSize < 1 {
		batchSize = 1
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Dispatcher{
		gateway:     gateway,
		batchSize:   batchSize,
		parallelism: parallelism,
		sendTimeout: sendTimeout,
		log:         log,
	}
}

// Dispatch отправляет n на все tokens. Отказ одного пакета не останавливает
// остальные, повторных попыток нет. После отмены ctx новые пакеты не запускаются,
// уже начатые дорабатывают, токены неначатых пакетов попадают в отчёт как неудачные.
// Отчёт детерминирован: пакеты сливаются в порядке следования токенов.
func (d *Dispatcher) Dispatch(ctx context.Context, tokens []string, n models.Notification) models.DispatchReport {
	const op = "notification.Dispatch"
	if len(tokens) == 0 {
		return models.DispatchReport{}
	}

	start := time.Now()
	defer func() { metrics.DispatchDuration.Observe(time.Since(start).Seconds()) }()

	log := d.log.With(slog.String("op", op))
	batches := split(tokens, d.batchSize)
	reports := make([]models.DispatchReport, len(batches))
	// Отправка не должна обрываться отменой вызывающего: начатый пакет доводится до конца.
	sendCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(d.parallelism)
	for i, batch := range batches {
		if ctx.Err() != nil {
			reports[i] = cancelled(batch)
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				reports[i] = cancelled(batch)
				return nil
			}
			reports[i] = d.sendBatch(sendCtx, log, i, batch, n)
			return nil
		})
	}
	_ = g.Wait()

	report := models.DispatchReport{TotalTargeted: len(tokens)}
	for _, r := range reports {
		report.SuccessCount += r.SuccessCount
		report.FailureCount += r.FailureCount
		report.Failures = append(report.Failures, r.Failures...)
	}
	log.Info("dispatch finished",
		slog.Int("targeted", report.TotalTargeted),
		slog.Int("success", report.SuccessCount),
		slog.Int("failure", report.FailureCount),
		slog.Int("batches", len(batches)),
	)
	return report
}

func (d *Dispatcher) sendBatch(ctx context.Context, log *slog.Logger, idx int, batch []string, n models.Notification) models.DispatchReport {
	ctx, cancel := d.withSendTimeout(ctx)
	defer cancel()

	results, err := d.gateway.SendMulticast(ctx, batch, n)
	if err == nil && len(results) != len(batch) {
		err = &models.GatewayError{Reason: "mismatched gateway results"}
	}
	if err != nil {
		metrics.PushBatches.WithLabelValues(metrics.ResultFailure).Inc()
		metrics.PushTokens.WithLabelValues(metrics.ResultFailure).Add(float64(len(batch)))
		log.Error("batch failed", slog.Int("batch", idx), slog.Int("size", len(batch)), sl.Err(err))
		return failedBatch(batch, reason(err))
	}

	metrics.PushBatches.WithLabelValues(metrics.ResultSuccess).Inc()
	var r models.DispatchReport
	for i, res := range results {
		if res.Err == nil {
			r.SuccessCount++
			continue
		}
		r.FailureCount++
		r.Failures = append(r.Failures, models.FailureDetail{Token: batch[i], Reason: reason(res.Err)})
	}
	metrics.PushTokens.WithLabelValues(metrics.ResultSuccess).Add(float64(r.SuccessCount))
	metrics.PushTokens.WithLabelValues(metrics.ResultFailure).Add(float64(r.FailureCount))
	if r.FailureCount > 0 {
		log.Warn("batch partially failed", slog.Int("batch", idx), slog.Int("failed", r.FailureCount))
	}
	return r
}

// SendToToken отправляет уведомление на один токен.
func (d *Dispatcher) SendToToken(ctx context.Context, token string, n models.Notification) (string, error) {
	ctx, cancel := d.withSendTimeout(ctx)
	defer cancel()

	id, err := d.gateway.SendSingle(ctx, token, n)
	if err != nil {
		metrics.PushTokens.WithLabelValues(metrics.ResultFailure).Inc()
		d.log.Warn("single send failed", sl.Token(token), sl.Err(err))
		return "", err
	}
	metrics.PushTokens.WithLabelValues(metrics.ResultSuccess).Inc()
	return id, nil
}

func (d *Dispatcher) withSendTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.sendTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.sendTimeout)
}

func split(tokens []string, size int) [][]string {
	batches := make([][]string, 0, (len(tokens)+size-1)/size)
	for start := 0; start < len(tokens); start += size {
		end := min(start+size, len(tokens))
		batches = append(batches, tokens[start:end])
	}
	return batches
}

func failedBatch(batch []string, why string) models.DispatchReport {
	r := models.DispatchReport{FailureCount: len(batch), Failures: make([]models.FailureDetail, len(batch))}
	for i, t := range batch {
		r.Failures[i] = models.FailureDetail{Token: t, Reason: why}
	}
	return r
}

func cancelled(batch []string) models.DispatchReport {
	return failedBatch(batch, ReasonCancelled)
}

func reason(err error) string {
	var gwErr *models.GatewayError
	if errors.As(err, &gwErr) && gwErr.Reason != "" {
		return gwErr.Reason
	}
	return err.Error()
}
