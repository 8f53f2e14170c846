package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
)

// Handler обрабатывает тело сообщения. Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, body []byte) error

// Consume запускает потребителя очереди queueName, обрабатывающего до workers
// сообщений одновременно. Возвращённый канал закрывается, когда потребитель
// остановлен и все обработчики завершились.
func Consume(ctx context.Context, ch *amqp.Channel, queueName string, workers int, log *slog.Logger, handler Handler) (<-chan struct{}, error) {
	const op = "rabbitmq.Consume"
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	done := make(chan struct{})
	sem := make(chan struct{}, max(workers, 1))
	go func() {
		defer close(done)
		defer func() {
			for range cap(sem) {
				sem <- struct{}{}
			}
		}()
		for {
			select {
			case d, ok := <-deliveries:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					settle(ctx, d.Body, d, d.Redelivered, log, handler)
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return done, nil
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle вызывает handler и подтверждает сообщение. Повторно доставленное
// сообщение, снова завершившееся ошибкой, отбрасывается.
func settle(ctx context.Context, body []byte, ack acknowledger, redelivered bool, log *slog.Logger, handler Handler) {
	if err := handler(ctx, body); err != nil {
		log.Error("failed to handle message", sl.Err(err), slog.Bool("redelivered", redelivered))
		if nackErr := ack.Nack(false, !redelivered); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
