// Package storagetest поднимает хранилище на miniredis для тестов сервисов.
package storagetest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/config"
	redisstorage "github.com/magabrotheeeer/community-directory/internal/storage/redis"
)

// NoopLogger возвращает логгер, который ничего не пишет.
func NoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// NewRedis запускает miniredis и подключает к нему storage.Backend.
func NewRedis(t *testing.T) (*redisstorage.Storage, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	s, err := redisstorage.New(context.Background(), config.RedisConnection{AddressRedis: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

// NewStore возвращает collection.Store поверх miniredis.
func NewStore(t *testing.T) (*collection.Store, *redisstorage.Storage, *miniredis.Miniredis) {
	t.Helper()
	backend, mr := NewRedis(t)
	store := collection.NewStore(backend, NoopLogger(), collection.Options{
		MaxRetries:   20,
		RetryBackoff: time.Millisecond,
	})
	return store, backend, mr
}
