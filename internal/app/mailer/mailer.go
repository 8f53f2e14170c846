// Package mailer собирает процесс доставки писем: очередь кодов → SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/community-directory/internal/config"
	"github.com/magabrotheeeer/community-directory/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/lib/smtp"
	mailerservice "github.com/magabrotheeeer/community-directory/internal/services/mailer"
)

const workers = 10

// ErrConsumerStopped возвращается, когда брокер закрыл канал доставки.
var ErrConsumerStopped = errors.New("consumer stopped")

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	queue         string
	senderService *mailerservice.SenderService
	logger        *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.mailer.New"
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("%s: rabbitmq.url is required", op)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	topology := rabbitmq.CredentialsTopology(cfg.Exchange, cfg.Queue, cfg.RoutingKey)
	ch, err := rabbitmq.SetupChannel(conn, topology, workers)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		queue:         cfg.Queue,
		senderService: mailerservice.NewSenderService(transport, logger),
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.Consume(ctx, a.ch, a.queue, workers, a.logger, a.senderService.HandleCodeMessage)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.queue), sl.Err(err))
		return err
	}

	runErr := waitConsumer(ctx, done, a.logger)

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return runErr
}

// waitConsumer ждёт остановки процесса или потребителя. Остановка потребителя
// до отмены ctx (брокер закрыл канал доставки) возвращается как ErrConsumerStopped.
func waitConsumer(ctx context.Context, done <-chan struct{}, logger *slog.Logger) error {
	const op = "app.mailer.Run"
	select {
	case <-ctx.Done():
		logger.Info("mailer shutting down gracefully")
		<-done
		return nil
	case <-done:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("%s: %w", op, ErrConsumerStopped)
	}
}
