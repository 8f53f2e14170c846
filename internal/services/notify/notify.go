// Package notify передаёт коды подтверждения почтовому сервису.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/community-directory/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// Publisher публикует CodeMessage в обменник RabbitMQ. Безопасен для
// параллельного использования: публикации в канал сериализуются.
type Publisher struct {
	mu         sync.Mutex
	ch         rabbitmq.Channel
	exchange   string
	routingKey string
	log        *slog.Logger
}

// NewPublisher создает Publisher.
func NewPublisher(ch rabbitmq.Channel, exchange, routingKey string, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, routingKey: routingKey, log: log}
}

// SendCode ставит письмо с кодом в очередь.
func (p *Publisher) SendCode(ctx context.Context, msg models.CodeMessage) error {
	const op = "notify.Publisher.SendCode"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	err := rabbitmq.PublishMessage(p.ch, p.exchange, p.routingKey, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.log.Debug("code message published",
		slog.String("email", msg.Email),
		slog.String("purpose", msg.Purpose),
	)
	return nil
}

// LogNotifier пишет коды в лог. Используется, когда брокер не настроен (локальный запуск).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier создает LogNotifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendCode(_ context.Context, msg models.CodeMessage) error {
	n.log.Info("verification code issued",
		slog.String("email", msg.Email),
		slog.String("purpose", msg.Purpose),
		slog.String("code", msg.Code),
		slog.Time("expires_at", msg.ExpiresAt),
	)
	return nil
}
