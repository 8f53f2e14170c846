// Package users хранит пользователей в коллекции "users" и выполняет над ней
// атомарные изменения. Email нормализуется на входе каждого метода.
package users

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/collection/dedup"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// CollectionKey — ключ коллекции пользователей в хранилище.
const CollectionKey = "users"

// Repository работает с коллекцией пользователей.
type Repository struct {
	users *collection.Collection[models.User]
	now   func() time.Time
}

// New создает Repository поверх общего хранилища коллекций.
func New(store *collection.Store) *Repository {
	return &Repository{
		users: collection.Of[models.User](store, CollectionKey),
		now:   time.Now,
	}
}

// FindByEmail возвращает пользователя или apperr.ErrNotFound.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "users.FindByEmail"
	email = models.NormalizeEmail(email)
	all, err := r.users.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	i := indexOf(all, email)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", op, apperr.ErrNotFound)
	}
	return &all[i], nil
}

// List возвращает всех пользователей.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	const op = "users.List"
	all, err := r.users.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return all, nil
}

// Insert добавляет пользователя; занятый email даёт apperr.ErrDuplicateIdentifier.
func (r *Repository) Insert(ctx context.Context, user models.User) (*models.User, error) {
	const op = "users.Insert"
	user.Email = models.NormalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now().UTC()
	}
	_, err := r.users.Mutate(ctx, func(all []models.User) ([]models.User, error) {
		if err := dedup.CheckInsert(all, user.Identifiers()); err != nil {
			return nil, err
		}
		return append(all, user), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &user, nil
}

// MarkVerified выставляет флаг verified.
func (r *Repository) MarkVerified(ctx context.Context, email string) error {
	return r.update(ctx, "users.MarkVerified", email, func(u *models.User) {
		u.Verified = true
	})
}

// SetPasswordHash сохраняет новый хеш пароля.
func (r *Repository) SetPasswordHash(ctx context.Context, email, hash string) error {
	return r.update(ctx, "users.SetPasswordHash", email, func(u *models.User) {
		u.PasswordHash = hash
	})
}

// SetRole меняет роль пользователя.
func (r *Repository) SetRole(ctx context.Context, email, role string) error {
	return r.update(ctx, "users.SetRole", email, func(u *models.User) {
		u.Role = role
	})
}

// Delete удаляет пользователя или возвращает apperr.ErrNotFound.
func (r *Repository) Delete(ctx context.Context, email string) error {
	const op = "users.Delete"
	email = models.NormalizeEmail(email)
	_, err := r.users.Mutate(ctx, func(all []models.User) ([]models.User, error) {
		i := indexOf(all, email)
		if i < 0 {
			return nil, apperr.ErrNotFound
		}
		return slices.Delete(all, i, i+1), nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *Repository) update(ctx context.Context, op, email string, apply func(*models.User)) error {
	email = models.NormalizeEmail(email)
	_, err := r.users.Mutate(ctx, func(all []models.User) ([]models.User, error) {
		i := indexOf(all, email)
		if i < 0 {
			return nil, apperr.ErrNotFound
		}
		apply(&all[i])
		return all, nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func indexOf(all []models.User, email string) int {
	return slices.IndexFunc(all, func(u models.User) bool { return u.Email == email })
}
