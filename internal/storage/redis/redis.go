// Package redis реализует storage.Backend поверх Redis.
//
// Условная запись построена на WATCH/MULTI/EXEC: если ключ изменён другим клиентом
// между WATCH и EXEC, транзакция отклоняется и Update возвращает apperr.ErrConflict.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/community-directory/internal/config"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/storage"
)

// Storage держит подключение к Redis и создаётся один раз при старте приложения.
type Storage struct {
	Db *redis.Client
}

// New подключается к Redis и проверяет соединение через PING.
func New(ctx context.Context, cfg config.RedisConnection) (*Storage, error) {
	const op = "storage.redis.New"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
	}
	return &Storage{Db: db}, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "storage.redis.Get"
	val, err := s.Db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(op, err)
	}
	return val, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "storage.redis.Set"
	if err := s.Db.Set(ctx, key, value, ttl).Err(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.redis.Delete"
	if err := s.Db.Del(ctx, key).Err(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// Update читает ключ под WATCH, вызывает fn и применяет результат в MULTI/EXEC.
func (s *Storage) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	const op = "storage.redis.Update"

	var fnErr error
	err := s.Db.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found = nil, false
		} else if err != nil {
			return err
		}

		m, err := fn(current, found)
		if err != nil {
			fnErr = err
			return err
		}
		if m.Skip {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if m.Delete {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, m.Value, m.TTL)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case fnErr != nil:
		return fnErr
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%s: %s: %w", op, key, apperr.ErrConflict)
	case ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return unavailable(op, err)
	}
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.redis.Ping"
	if err := s.Db.Ping(ctx).Err(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *Storage) Close() error {
	return s.Db.Close()
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
}
