// Package mailer доставляет письма с кодами подтверждения из очереди.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/lib/smtp"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// Transport открывает SMTP сессию.
type Transport interface {
	Connect() (smtp.Client, error)
	From() string
}

// SenderService превращает CodeMessage в письмо и отправляет его.
type SenderService struct {
	transport Transport
	log       *slog.Logger
}

// NewSenderService создает SenderService.
func NewSenderService(transport Transport, log *slog.Logger) *SenderService {
	return &SenderService{transport: transport, log: log}
}

// HandleCodeMessage обрабатывает сообщение из очереди кодов.
func (s *SenderService) HandleCodeMessage(_ context.Context, body []byte) error {
	const op = "mailer.HandleCodeMessage"
	var msg models.CodeMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if msg.Email == "" || msg.Code == "" {
		return fmt.Errorf("%s: message without email or code", op)
	}

	subject, text := composeCode(msg)
	if err := s.sendEmail([]string{msg.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func composeCode(msg models.CodeMessage) (string, string) {
	expires := msg.ExpiresAt.UTC().Format("15:04 MST")
	switch msg.Purpose {
	case models.PurposeReset:
		return "Сброс пароля",
			fmt.Sprintf("Здравствуйте!\r\n\r\nКод для сброса пароля: %s\r\nКод действует до %s.\r\n\r\nЕсли вы не запрашивали сброс, просто проигнорируйте это письмо.", msg.Code, expires)
	default:
		return "Подтверждение email",
			fmt.Sprintf("Здравствуйте!\r\n\r\nКод подтверждения регистрации: %s\r\nКод действует до %s.", msg.Code, expires)
	}
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.From()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(); err != nil {
			s.log.Debug("smtp client close", sl.Err(err))
		}
	}()

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("MAIL FROM %s: %w", from, err)
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", addr, err)
		}
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA: %w", err)
	}
	if _, err := wc.Write([]byte(msg)); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close body: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("QUIT: %w", err)
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
