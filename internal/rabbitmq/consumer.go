package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/wallpaper-backend/internal/lib/sl"
)

// ConsumerMessage запускает потребителя очереди queueName. Не больше workers
// сообщений обрабатываются одновременно. Сообщение, на котором handler вернул
// ошибку, отклоняется без возврата в очередь: повтор рассылки дал бы дубли push-уведомлений.
//
// Возвращаемый канал закрывается, когда потребитель остановлен по ctx и все
// начатые обработчики завершились. Канал amqp можно закрывать только после этого.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string,
	workers int, handler func(context.Context, []byte) error) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumerMessage"
	log = log.With(slog.String("op", op), slog.String("queue", queueName))

	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return consume(ctx, log, delivery, workers, handler), nil
}

func consume(ctx context.Context, log *slog.Logger, delivery <-chan amqp.Delivery,
	workers int, handler func(context.Context, []byte) error) <-chan struct{} {
	if workers <= 0 {
		workers = 1
	}

	done := make(chan struct{})
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	go func() {
		defer close(done)
		defer wg.Wait()
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				wg.Add(1)
				go func(d amqp.Delivery) {
					defer wg.Done()
					defer func() { <-sem }()
					if err := handler(ctx, d.Body); err != nil {
						log.Error("failed to handle message", sl.Err(err))
						if nackErr := d.Nack(false, false); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
						return
					}
					if ackErr := d.Ack(false); ackErr != nil {
						log.Error("failed to ack message", sl.Err(ackErr))
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
