// Package postgres реализует storage.Backend поверх таблицы kv_documents в PostgreSQL.
//
// Каждая строка хранит значение ключа и номер версии. Update читает версию,
// а затем пишет с условием WHERE version = $n; ноль затронутых строк означает,
// что ключ изменил кто-то другой, и возвращается apperr.ErrConflict.
// Истёкшие строки (expires_at <= now()) считаются отсутствующими.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/storage"
)

// Storage — пул соединений с PostgreSQL.
type Storage struct {
	pool *pgxpool.Pool
}

// New открывает пул, проверяет соединение и применяет миграции.
func New(ctx context.Context, dsn string) (*Storage, error) {
	const op = "storage.postgres.New"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
	}
	if err := runMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{pool: pool}, nil
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "storage.postgres.Get"
	var value []byte
	err := s.pool.QueryRow(ctx, `
        SELECT value FROM kv_documents
        WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(op, err)
	}
	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "storage.postgres.Set"
	_, err := s.pool.Exec(ctx, `
        INSERT INTO kv_documents (key, value, version, expires_at, updated_at)
        VALUES ($1, $2, 1, $3, now())
        ON CONFLICT (key) DO UPDATE
        SET value = EXCLUDED.value,
            version = kv_documents.version + 1,
            expires_at = EXCLUDED.expires_at,
            updated_at = now()`,
		key, value, expiresAt(ttl))
	if err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	const op = "storage.postgres.Delete"
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_documents WHERE key = $1`, key); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// Update делает оптимистичную запись по номеру версии строки.
func (s *Storage) Update(ctx context.Context, key string, fn storage.UpdateFunc) error {
	const op = "storage.postgres.Update"

	var (
		current []byte
		version int64
		live    bool
	)
	rowExists := true
	err := s.pool.QueryRow(ctx, `
        SELECT value, version, (expires_at IS NULL OR expires_at > now())
        FROM kv_documents WHERE key = $1`,
		key).Scan(&current, &version, &live)
	if errors.Is(err, pgx.ErrNoRows) {
		rowExists = false
	} else if err != nil {
		return unavailable(op, err)
	}
	if !live {
		current = nil
	}

	m, err := fn(current, rowExists && live)
	if err != nil {
		return err
	}
	if m.Skip {
		return nil
	}

	var affected int64
	switch {
	case m.Delete && !rowExists:
		return nil
	case m.Delete:
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM kv_documents WHERE key = $1 AND version = $2`, key, version)
		if err != nil {
			return unavailable(op, err)
		}
		affected = tag.RowsAffected()
	case !rowExists:
		tag, err := s.pool.Exec(ctx, `
            INSERT INTO kv_documents (key, value, version, expires_at, updated_at)
            VALUES ($1, $2, 1, $3, now())
            ON CONFLICT (key) DO NOTHING`,
			key, m.Value, expiresAt(m.TTL))
		if err != nil {
			return unavailable(op, err)
		}
		affected = tag.RowsAffected()
	default:
		tag, err := s.pool.Exec(ctx, `
            UPDATE kv_documents
            SET value = $1, version = version + 1, expires_at = $2, updated_at = now()
            WHERE key = $3 AND version = $4`,
			m.Value, expiresAt(m.TTL), key, version)
		if err != nil {
			return unavailable(op, err)
		}
		affected = tag.RowsAffected()
	}

	if affected == 0 {
		return fmt.Errorf("%s: %s: %w", op, key, apperr.ErrConflict)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.postgres.Ping"
	if err := s.pool.Ping(ctx); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

func expiresAt(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := time.Now().Add(ttl)
	return &t
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, apperr.ErrStorageUnavailable, err)
}
