// Package collection реализует хранилище коллекций: каждая коллекция хранится как JSON-массив
// записей под одним ключом key-value хранилища.
//
// Mutate гарантирует, что изменения одного ключа линеаризуются: внутри процесса
// их сериализует мьютекс по ключу, между процессами условная запись хранилища
// (storage.Backend.Update) с ограниченным числом повторов. Две параллельные
// мутации никогда не затирают друг друга молча.
//
// Чтение снисходительно: отсутствующее или повреждённое значение читается как
// пустая коллекция. Запись поверх повреждённого значения отклоняется с
// apperr.ErrCorruptData.
package collection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/storage"
)

const (
	defaultMaxRetries   = 10
	defaultRetryBackoff = 5 * time.Millisecond
)

// Observer получает итог каждой мутации (для метрик).
type Observer interface {
	ObserveMutation(key, outcome string, attempts int)
}

// Options задаёт настройки Store.
type Options struct {
	MaxRetries   int           // Максимум попыток условной записи
	RetryBackoff time.Duration // Базовая пауза между попытками
	Observer     Observer
}

// Store даёт доступ к коллекциям. Один экземпляр на процесс.
type Store struct {
	backend storage.Backend
	log     *slog.Logger
	locks   *keyLocks
	opts    Options
}

// NewStore создаёт Store поверх backend.
func NewStore(backend storage.Backend, log *slog.Logger, opts Options) *Store {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultRetryBackoff
	}
	return &Store{
		backend: backend,
		log:     log,
		locks:   newKeyLocks(),
		opts:    opts,
	}
}

// Collection предоставляет типизированный доступ к коллекции под ключом key.
type Collection[T any] struct {
	store *Store
	key   string
}

// Of возвращает коллекцию записей типа T под ключом key.
func Of[T any](s *Store, key string) *Collection[T] {
	return &Collection[T]{store: s, key: key}
}

// Key возвращает ключ коллекции в хранилище.
func (c *Collection[T]) Key() string {
	return c.key
}

// Get возвращает свежий снимок коллекции.
func (c *Collection[T]) Get(ctx context.Context) ([]T, error) {
	const op = "collection.Get"

	raw, found, err := c.store.backend.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	items, err := decode[T](raw, found)
	if err != nil {
		c.store.log.Warn("corrupt collection read as empty",
			slog.String("op", op),
			slog.String("key", c.key),
			sl.Err(err),
		)
		return []T{}, nil
	}
	return items, nil
}

// Mutate применяет transform к последнему снимку и атомарно записывает результат.
//
// transform может быть вызван несколько раз (при конфликте записи), поэтому
// он не должен иметь побочных эффектов вне возвращаемого значения.
// Ошибка transform прерывает мутацию без записи и возвращается как есть (обёрнутой).
func (c *Collection[T]) Mutate(ctx context.Context, transform func([]T) ([]T, error)) ([]T, error) {
	const op = "collection.Mutate"

	unlock, err := c.store.locks.lock(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer unlock()

	var result []T
	for attempt := 1; attempt <= c.store.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			c.observe("cancelled", attempt)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		err := c.store.backend.Update(ctx, c.key, func(current []byte, found bool) (storage.Mutation, error) {
			items, err := decode[T](current, found)
			if err != nil {
				return storage.Mutation{}, fmt.Errorf("%s: %w", c.key, errors.Join(apperr.ErrCorruptData, err))
			}
			next, err := transform(items)
			if err != nil {
				return storage.Mutation{}, err
			}
			if next == nil {
				next = []T{}
			}
			data, err := json.Marshal(next)
			if err != nil {
				return storage.Mutation{}, err
			}
			result = next
			return storage.Mutation{Value: data}, nil
		})

		switch {
		case err == nil:
			c.observe("ok", attempt)
			return result, nil
		case !errors.Is(err, apperr.ErrConflict):
			c.observe(outcome(err), attempt)
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		c.store.log.Debug("mutation conflict, retrying",
			slog.String("key", c.key),
			slog.Int("attempt", attempt),
		)
		if err := sleep(ctx, c.backoff(attempt)); err != nil {
			c.observe("cancelled", attempt)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	c.observe("conflict", c.store.opts.MaxRetries)
	return nil, fmt.Errorf("%s: %s: retries exhausted: %w", op, c.key, apperr.ErrConflict)
}

// Set безусловно перезаписывает коллекцию. Только для начального заполнения и миграций.
func (c *Collection[T]) Set(ctx context.Context, items []T) error {
	const op = "collection.Set"
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.store.backend.Set(ctx, c.key, data, 0); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Collection[T]) backoff(attempt int) time.Duration {
	base := c.store.opts.RetryBackoff * time.Duration(attempt)
	return base + rand.N(base)
}

func (c *Collection[T]) observe(result string, attempts int) {
	if c.store.opts.Observer != nil {
		c.store.opts.Observer.ObserveMutation(c.key, result, attempts)
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, apperr.ErrCorruptData):
		return "corrupt"
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "rejected"
	}
}

func decode[T any](raw []byte, found bool) ([]T, error) {
	if !found || len(raw) == 0 {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
