package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/collection/dedup"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// SubscriberService управляет подписчиками рассылки.
type SubscriberService struct {
	subscribers *collection.Collection[models.Subscriber]
	log         *slog.Logger
}

// NewSubscriberService создает SubscriberService.
func NewSubscriberService(store *collection.Store, log *slog.Logger) *SubscriberService {
	return &SubscriberService{
		subscribers: collection.Of[models.Subscriber](store, SubscribersKey),
		log:         log,
	}
}

// Subscribe добавляет email в рассылку; повторная подписка даёт apperr.ErrDuplicateIdentifier.
func (s *SubscriberService) Subscribe(ctx context.Context, email string) (*models.Subscriber, error) {
	const op = "directory.SubscriberService.Subscribe"
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("%s: invalid email: %w", op, apperr.ErrInvalidInput)
	}
	email = models.NormalizeEmail(addr.Address)
	sub := models.Subscriber{ID: newID(), Email: email, CreatedAt: nowUTC()}
	_, err = s.subscribers.Mutate(ctx, func(all []models.Subscriber) ([]models.Subscriber, error) {
		if err := dedup.CheckInsert(all, sub.Identifiers()); err != nil {
			return nil, err
		}
		return append(all, sub), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

// List возвращает всех подписчиков.
func (s *SubscriberService) List(ctx context.Context) ([]models.Subscriber, error) {
	const op = "directory.SubscriberService.List"
	all, err := s.subscribers.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return all, nil
}
