package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/collection/dedup"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// ListingInput — данные бизнес-листинга.
type ListingInput struct {
	Name        string
	Website     string
	Description string
	CategoryID  string
	LocationID  string
	Owner       string
}

// ListingService управляет бизнес-листингами.
type ListingService struct {
	listings *collection.Collection[models.BusinessListing]
	log      *slog.Logger
}

// NewListingService создает ListingService.
func NewListingService(store *collection.Store, log *slog.Logger) *ListingService {
	return &ListingService{
		listings: collection.Of[models.BusinessListing](store, ListingsKey),
		log:      log,
	}
}

// List возвращает листинги; onlyApproved скрывает не прошедшие модерацию.
func (s *ListingService) List(ctx context.Context, onlyApproved bool) ([]models.BusinessListing, error) {
	const op = "directory.ListingService.List"
	all, err := s.listings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !onlyApproved {
		return all, nil
	}
	return slices.DeleteFunc(all, func(l models.BusinessListing) bool {
		return l.Status != models.StatusApproved
	}), nil
}

// Create добавляет листинг на модерацию; сайт должен быть уникален.
func (s *ListingService) Create(ctx context.Context, in ListingInput) (*models.BusinessListing, error) {
	const op = "directory.ListingService.Create"
	website := strings.TrimSpace(in.Website)
	if u, err := url.Parse(website); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid website %q: %w", op, website, apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%s: name is required: %w", op, apperr.ErrInvalidInput)
	}

	l := models.BusinessListing{
		ID:          newID(),
		Name:        strings.TrimSpace(in.Name),
		Website:     website,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		Owner:       models.NormalizeEmail(in.Owner),
		Status:      models.StatusPending,
		CreatedAt:   nowUTC(),
	}
	_, err := s.listings.Mutate(ctx, func(all []models.BusinessListing) ([]models.BusinessListing, error) {
		if err := dedup.CheckInsert(all, l.Identifiers()); err != nil {
			return nil, err
		}
		return append(all, l), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &l, nil
}

// SetStatus меняет статус модерации листинга.
func (s *ListingService) SetStatus(ctx context.Context, id, status string) error {
	const op = "directory.ListingService.SetStatus"
	if !validModerationStatus(status) {
		return fmt.Errorf("%s: unknown status %q: %w", op, status, apperr.ErrInvalidInput)
	}
	_, err := s.listings.Mutate(ctx, func(all []models.BusinessListing) ([]models.BusinessListing, error) {
		return update(all, listingID, id, func(l *models.BusinessListing) error {
			l.Status = status
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func listingID(l models.BusinessListing) string { return l.ID }
