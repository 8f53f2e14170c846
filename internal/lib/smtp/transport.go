// Package smtp выполняет подключение к SMTP серверу со STARTTLS и авторизацией.
package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"github.com/magabrotheeeer/community-directory/internal/config"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Client описывает используемую часть *smtp.Client.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Transport открывает авторизованные SMTP сессии.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

// NewTransport создает Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect устанавливает соединение, включает STARTTLS и проходит авторизацию.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Transport.Connect"
	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to dial SMTP server: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: failed to create SMTP client: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.closeClient(client)
		return nil, fmt.Errorf("%s: smtp server does not support STARTTLS", op)
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		t.closeClient(client)
		return nil, fmt.Errorf("%s: failed to start TLS: %w", op, err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err = client.Auth(auth); err != nil {
		t.closeClient(client)
		return nil, fmt.Errorf("%s: smtp auth failed: %w", op, err)
	}

	return client, nil
}

// From возвращает адрес отправителя.
func (t *Transport) From() string {
	return t.cfg.SMTPUser
}

func (t *Transport) closeClient(c *smtp.Client) {
	if err := c.Close(); err != nil {
		t.log.Error("failed to close client", sl.Err(err))
	}
}
