// Package session выдаёт, проверяет и отзывает непрозрачные bearer-токены сессий.
//
// Сессия живёт фиксированное время от выдачи, продления при обращении нет.
// Истечение проверяется лениво в момент Validate; TTL ключа в хранилище нужен
// только для уборки и на решение не влияет.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/lib/random"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/storage"
)

const (
	keyPrefix  = "session:"
	tokenBytes = 32
)

// UserFinder находит пользователя по email.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Directory хранит сессии в key-value хранилище.
type Directory struct {
	backend storage.Backend
	users   UserFinder
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

// New создает Directory с фиксированным временем жизни сессии ttl.
func New(backend storage.Backend, users UserFinder, ttl time.Duration, log *slog.Logger) *Directory {
	return &Directory{
		backend: backend,
		users:   users,
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
}

// Create выдаёт новый токен для email.
func (d *Directory) Create(ctx context.Context, email string) (string, error) {
	const op = "session.Create"

	token, err := random.HexString(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	issued := d.now().UTC()
	s := models.Session{
		Token:     token,
		Email:     models.NormalizeEmail(email),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(d.ttl),
	}
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := d.backend.Set(ctx, keyPrefix+token, data, d.ttl); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Validate возвращает владельца сессии. Неизвестный, истёкший токен или удалённый
// пользователь дают одинаковую ошибку apperr.ErrUnauthorized.
func (d *Directory) Validate(ctx context.Context, token string) (*models.User, error) {
	const op = "session.Validate"
	if token == "" {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}

	raw, found, err := d.backend.Get(ctx, keyPrefix+token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}

	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		d.log.Warn("corrupt session record", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	if !d.now().Before(s.ExpiresAt) {
		if err := d.backend.Delete(ctx, keyPrefix+token); err != nil {
			d.log.Warn("failed to drop expired session", slog.String("op", op), sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}

	user, err := d.users.FindByEmail(ctx, s.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// Delete отзывает токен. Отсутствующий токен не считается ошибкой.
func (d *Directory) Delete(ctx context.Context, token string) error {
	const op = "session.Delete"
	if token == "" {
		return nil
	}
	if err := d.backend.Delete(ctx, keyPrefix+token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
