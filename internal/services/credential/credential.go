// Package credential выдаёт и погашает одноразовые коды подтверждения email
// и сброса пароля.
//
// Код хранится под ключом code:<purpose>:<email>; новая выдача перезаписывает
// прежний код. Проверка и удаление кода выполняются одной условной записью,
// поэтому один код нельзя погасить дважды даже параллельно.
package credential

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/community-directory/internal/config"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/lib/password"
	"github.com/magabrotheeeer/community-directory/internal/lib/random"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/storage"
)

const (
	keyPrefix       = "code:"
	consumeAttempts = 3
)

// Notifier доставляет код пользователю вне приложения (почтовый сервис).
type Notifier interface {
	SendCode(ctx context.Context, msg models.CodeMessage) error
}

// Users — изменения пользователя, которые разрешает погашенный код.
type Users interface {
	MarkVerified(ctx context.Context, email string) error
	SetPasswordHash(ctx context.Context, email, hash string) error
}

// Verifier выдаёт и проверяет одноразовые коды.
type Verifier struct {
	backend  storage.Backend
	users    Users
	notifier Notifier
	cfg      config.Credentials
	now      func() time.Time
	log      *slog.Logger
}

// New создает Verifier.
func New(backend storage.Backend, users Users, notifier Notifier, cfg config.Credentials, log *slog.Logger) *Verifier {
	return &Verifier{
		backend:  backend,
		users:    users,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		log:      log,
	}
}

// IssueCode создаёт новый код для (email, purpose) и передаёт его Notifier.
func (v *Verifier) IssueCode(ctx context.Context, email, purpose string) (string, error) {
	const op = "credential.IssueCode"
	if !validPurpose(purpose) {
		return "", fmt.Errorf("%s: unknown purpose %q: %w", op, purpose, apperr.ErrInvalidInput)
	}
	email = models.NormalizeEmail(email)

	code, err := random.NumericCode(v.cfg.CodeLength)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	rec := models.VerificationCode{
		Email:     email,
		Code:      code,
		Purpose:   purpose,
		ExpiresAt: v.now().UTC().Add(v.cfg.CodeTTL),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := v.backend.Set(ctx, key(email, purpose), data, v.cfg.CodeTTL); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	msg := models.CodeMessage{Email: email, Code: code, Purpose: purpose, ExpiresAt: rec.ExpiresAt}
	if err := v.notifier.SendCode(ctx, msg); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return code, nil
}

// ConsumeCode гасит код. Для signup пользователь помечается подтверждённым.
// Любая неудача (нет кода, истёк, не совпал) возвращает apperr.ErrInvalidCredential.
func (v *Verifier) ConsumeCode(ctx context.Context, email, code, purpose string) error {
	const op = "credential.ConsumeCode"
	if !validPurpose(purpose) {
		return fmt.Errorf("%s: unknown purpose %q: %w", op, purpose, apperr.ErrInvalidInput)
	}
	email = models.NormalizeEmail(email)

	rec, err := v.consume(ctx, email, code, purpose)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if purpose == models.PurposeSignup {
		if err := v.users.MarkVerified(ctx, email); err != nil {
			v.restore(ctx, rec)
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return nil
}

// ResetPassword проверяет политику пароля, гасит код сброса и сохраняет хеш нового пароля.
func (v *Verifier) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "credential.ResetPassword"
	if err := password.CheckPolicy(newPassword, v.cfg.MinPasswordLength); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	hash, err := password.GetHash(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	email = models.NormalizeEmail(email)
	rec, err := v.consume(ctx, email, code, models.PurposeReset)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := v.users.SetPasswordHash(ctx, email, hash); err != nil {
		v.restore(ctx, rec)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (v *Verifier) consume(ctx context.Context, email, code, purpose string) (models.VerificationCode, error) {
	var (
		rec models.VerificationCode
		err error
	)
	for range consumeAttempts {
		rec, err = v.tryConsume(ctx, email, code, purpose)
		if !errors.Is(err, apperr.ErrConflict) {
			return rec, err
		}
	}
	return rec, err
}

// restore возвращает погашенный код, если изменение пользователя после гашения не удалось.
// Код, выданный за это время заново, не перезаписывается.
func (v *Verifier) restore(ctx context.Context, rec models.VerificationCode) {
	ctx = context.WithoutCancel(ctx)
	ttl := rec.ExpiresAt.Sub(v.now())
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		v.log.Error("failed to encode verification code", sl.Err(err))
		return
	}
	err = v.backend.Update(ctx, key(rec.Email, rec.Purpose), func(_ []byte, found bool) (storage.Mutation, error) {
		if found {
			return storage.Mutation{Skip: true}, nil
		}
		return storage.Mutation{Value: data, TTL: ttl}, nil
	})
	if err != nil {
		v.log.Error("failed to restore verification code",
			slog.String("email", rec.Email),
			slog.String("purpose", rec.Purpose),
			sl.Err(err),
		)
	}
}

func (v *Verifier) tryConsume(ctx context.Context, email, code, purpose string) (models.VerificationCode, error) {
	var (
		result   error
		consumed models.VerificationCode
	)
	err := v.backend.Update(ctx, key(email, purpose), func(current []byte, found bool) (storage.Mutation, error) {
		if !found {
			result = apperr.ErrInvalidCredential
			return storage.Mutation{Skip: true}, nil
		}

		var rec models.VerificationCode
		if err := json.Unmarshal(current, &rec); err != nil {
			v.log.Warn("corrupt verification code dropped", sl.Err(err))
			result = apperr.ErrInvalidCredential
			return storage.Mutation{Delete: true}, nil
		}

		now := v.now()
		if !now.Before(rec.ExpiresAt) {
			result = apperr.ErrInvalidCredential
			return storage.Mutation{Delete: true}, nil
		}

		if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
			result = apperr.ErrInvalidCredential
			rec.Attempts++
			if v.cfg.MaxAttempts > 0 && rec.Attempts >= v.cfg.MaxAttempts {
				v.log.Info("verification code exhausted",
					slog.String("email", email),
					slog.String("purpose", purpose),
				)
				return storage.Mutation{Delete: true}, nil
			}
			data, err := json.Marshal(rec)
			if err != nil {
				return storage.Mutation{}, err
			}
			return storage.Mutation{Value: data, TTL: rec.ExpiresAt.Sub(now)}, nil
		}

		result = nil
		consumed = rec
		consumed.Email, consumed.Purpose = email, purpose
		return storage.Mutation{Delete: true}, nil
	})
	if err != nil {
		return models.VerificationCode{}, err
	}
	return consumed, result
}

func key(email, purpose string) string {
	return keyPrefix + purpose + ":" + email
}

func validPurpose(purpose string) bool {
	return purpose == models.PurposeSignup || purpose == models.PurposeReset
}
