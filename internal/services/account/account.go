// Package account содержит логику бизнес-уровня для регистрации, входа,
// восстановления пароля и администрирования учётных записей.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/lib/password"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// UserRepository описывает контракт для работы с пользователями в хранилище.
type UserRepository interface {
	Insert(ctx context.Context, user models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, email, role string) error
	Delete(ctx context.Context, email string) error
}

// Sessions — выдача и отзыв сессий.
type Sessions interface {
	Create(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, token string) error
}

// Credentials — одноразовые коды.
type Credentials interface {
	IssueCode(ctx context.Context, email, purpose string) (string, error)
	ConsumeCode(ctx context.Context, email, code, purpose string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// Guard — защита выделенных учётных записей.
type Guard interface {
	IsProtected(email string) bool
	CheckMutableRole(target, newRole string) error
	CheckDeletable(target string) error
}

// AuthService отвечает за жизненный цикл учётных записей.
type AuthService struct {
	users             UserRepository
	sessions          Sessions
	credentials       Credentials
	guard             Guard
	minPasswordLength int
	log               *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, sessions Sessions, credentials Credentials, guard Guard, minPasswordLength int, log *slog.Logger) *AuthService {
	return &AuthService{
		users:             users,
		sessions:          sessions,
		credentials:       credentials,
		guard:             guard,
		minPasswordLength: minPasswordLength,
		log:               log,
	}
}

// Register создает неподтверждённого пользователя и отправляет код подтверждения.
// Защищённые субъекты сразу получают роль администратора.
func (s *AuthService) Register(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "account.Register"
	email = models.NormalizeEmail(email)

	if err := password.CheckPolicy(rawPassword, s.minPasswordLength); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	role := models.RoleUser
	if s.guard.IsProtected(email) {
		role = models.RoleAdmin
	}
	user, err := s.users.Insert(ctx, models.User{
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// пользователь уже создан, код можно запросить повторно через ResendVerification
	if _, err := s.credentials.IssueCode(ctx, email, models.PurposeSignup); err != nil {
		s.log.Error("failed to issue signup code", slog.String("op", op), sl.Err(err))
	}
	return user, nil
}

// ResendVerification выдаёт новый код, если пользователь существует и ещё не подтверждён.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	const op = "account.ResendVerification"
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user.Verified {
		return nil
	}
	if _, err := s.credentials.IssueCode(ctx, user.Email, models.PurposeSignup); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Verify гасит код регистрации и открывает сессию.
func (s *AuthService) Verify(ctx context.Context, email, code string) (string, error) {
	const op = "account.Verify"
	email = models.NormalizeEmail(email)
	if err := s.credentials.ConsumeCode(ctx, email, code, models.PurposeSignup); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	token, err := s.sessions.Create(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return token, nil
}

// Login проверяет пароль подтверждённого пользователя и открывает сессию.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (string, *models.User, error) {
	const op = "account.Login"
	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, fmt.Errorf("%s: invalid credentials: %w", op, apperr.ErrUnauthorized)
	}
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return "", nil, fmt.Errorf("%s: invalid credentials: %w", op, apperr.ErrUnauthorized)
	}
	if !user.Verified {
		return "", nil, fmt.Errorf("%s: email not verified: %w", op, apperr.ErrForbidden)
	}

	token, err := s.sessions.Create(ctx, user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// Logout отзывает сессию. Ошибки только логируются: выход всегда успешен для пользователя.
func (s *AuthService) Logout(ctx context.Context, token string) {
	const op = "account.Logout"
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.log.Warn("failed to delete session", slog.String("op", op), sl.Err(err))
	}
}

// ForgotPassword отправляет код сброса, если пользователь существует.
// Результат не раскрывается вызывающему.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	const op = "account.ForgotPassword"
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			s.log.Error("failed to look up user", slog.String("op", op), sl.Err(err))
		}
		return
	}
	if _, err := s.credentials.IssueCode(ctx, user.Email, models.PurposeReset); err != nil {
		s.log.Error("failed to issue reset code", slog.String("op", op), sl.Err(err))
	}
}

// ResetPassword устанавливает новый пароль по коду сброса.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "account.ResetPassword"
	if err := s.credentials.ResetPassword(ctx, email, code, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListUsers возвращает всех пользователей.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "account.ListUsers"
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return all, nil
}

// SetRole меняет роль пользователя, если он не защищён.
func (s *AuthService) SetRole(ctx context.Context, target, role string) error {
	const op = "account.SetRole"
	if !models.ValidRole(role) {
		return fmt.Errorf("%s: unknown role %q: %w", op, role, apperr.ErrInvalidInput)
	}
	if err := s.guard.CheckMutableRole(target, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.SetRole(ctx, target, role); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя, если он не защищён.
func (s *AuthService) DeleteUser(ctx context.Context, target string) error {
	const op = "account.DeleteUser"
	if err := s.guard.CheckDeletable(target); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.Delete(ctx, target); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
