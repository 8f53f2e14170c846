// Package communitydirectory собирает HTTP-приложение каталога: хранилище, сервисы,
// маршруты и сервер.
package communitydirectory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/config"
	"github.com/magabrotheeeer/community-directory/internal/http/middlewarectx"
	"github.com/magabrotheeeer/community-directory/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/metrics"
	"github.com/magabrotheeeer/community-directory/internal/services/account"
	"github.com/magabrotheeeer/community-directory/internal/services/credential"
	directorysvc "github.com/magabrotheeeer/community-directory/internal/services/directory"
	"github.com/magabrotheeeer/community-directory/internal/services/notify"
	"github.com/magabrotheeeer/community-directory/internal/services/roleguard"
	"github.com/magabrotheeeer/community-directory/internal/services/session"
	"github.com/magabrotheeeer/community-directory/internal/services/users"
	"github.com/magabrotheeeer/community-directory/internal/storage"
	"github.com/magabrotheeeer/community-directory/internal/storage/postgres"
	redisstorage "github.com/magabrotheeeer/community-directory/internal/storage/redis"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server  *http.Server
	logger  *slog.Logger
	backend storage.Backend
	amqp    *amqp.Connection
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.communitydirectory.New"

	backend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	notifier, conn, err := newNotifier(cfg, logger)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	store := collection.NewStore(backend, logger, collection.Options{
		MaxRetries:   cfg.Storage.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Observer:     m,
	})

	userRepo := users.New(store)
	sessions := session.New(backend, userRepo, cfg.Session.TTL, logger)
	verifier := credential.New(backend, userRepo, notifier, cfg.Credentials, logger)
	guard := roleguard.New(cfg.ProtectedPrincipals)

	svc := Services{
		Auth:        account.NewAuthService(userRepo, sessions, verifier, guard, cfg.MinPasswordLength, logger),
		Sessions:    sessions,
		Groups:      directorysvc.NewGroupService(store, logger),
		Campaigns:   directorysvc.NewCampaignService(store, logger),
		Subscribers: directorysvc.NewSubscriberService(store, logger),
		Reports:     directorysvc.NewReportService(store, logger),
		Listings:    directorysvc.NewListingService(store, logger),
		Backend:     backend,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, svc, m, middlewarectx.NewRateLimiter(cfg.RPS, cfg.Burst))

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:  srv,
		logger:  logger,
		backend: backend,
		amqp:    conn,
	}, nil
}

// OpenBackend открывает хранилище, выбранное в конфиге. Вызывается один раз на процесс.
func OpenBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Backend {
	case "redis":
		s, err := redisstorage.New(ctx, cfg.RedisConnection)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// newNotifier публикует коды в RabbitMQ, а без настроенного брокера пишет их в лог.
func newNotifier(cfg *config.Config, logger *slog.Logger) (credential.Notifier, *amqp.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Warn("rabbitmq.url is empty, verification codes will be logged")
		return notify.NewLogNotifier(logger), nil, nil
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.CredentialsTopology(cfg.Exchange, cfg.Queue, cfg.RoutingKey), 0)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return notify.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey, logger), conn, nil
}

func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	a.close()
	return err
}

func (a *App) close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Error("failed to close rabbitmq connection", sl.Err(err))
		}
	}
}
