package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// CampaignInput — данные новой кампании.
type CampaignInput struct {
	Title       string
	Description string
	GoalAmount  int
	URL         string
}

// CampaignService управляет кампаниями и отметками «нравится».
type CampaignService struct {
	campaigns *collection.Collection[models.Campaign]
	log       *slog.Logger
}

// NewCampaignService создает CampaignService.
func NewCampaignService(store *collection.Store, log *slog.Logger) *CampaignService {
	return &CampaignService{
		campaigns: collection.Of[models.Campaign](store, CampaignsKey),
		log:       log,
	}
}

// List возвращает все кампании.
func (s *CampaignService) List(ctx context.Context) ([]models.Campaign, error) {
	const op = "directory.CampaignService.List"
	all, err := s.campaigns.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return all, nil
}

// Create добавляет кампанию.
func (s *CampaignService) Create(ctx context.Context, in CampaignInput) (*models.Campaign, error) {
	const op = "directory.CampaignService.Create"
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%s: title is required: %w", op, apperr.ErrInvalidInput)
	}
	c := models.Campaign{
		ID:          newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		GoalAmount:  in.GoalAmount,
		URL:         in.URL,
		LikedBy:     []string{},
		CreatedAt:   nowUTC(),
	}
	_, err := s.campaigns.Mutate(ctx, func(all []models.Campaign) ([]models.Campaign, error) {
		return append(all, c), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// ToggleLike ставит или снимает отметку пользователя email на кампании id.
func (s *CampaignService) ToggleLike(ctx context.Context, id, email string) (*models.Campaign, error) {
	const op = "directory.CampaignService.ToggleLike"
	email = models.NormalizeEmail(email)
	var result models.Campaign
	_, err := s.campaigns.Mutate(ctx, func(all []models.Campaign) ([]models.Campaign, error) {
		return update(all, campaignID, id, func(c *models.Campaign) error {
			c.ToggleLike(email)
			result = *c
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

func campaignID(c models.Campaign) string { return c.ID }
