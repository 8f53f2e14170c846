package directory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/magabrotheeeer/community-directory/internal/collection"
	"github.com/magabrotheeeer/community-directory/internal/collection/dedup"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// GroupInput — данные новой группы. Link и Links сводятся в один список идентификаторов.
type GroupInput struct {
	Title       string
	Description string
	Link        string
	Links       []string
	CategoryID  string
	LocationID  string
	SubmittedBy string
}

// GroupFilter — фильтр списка групп; пустые поля не фильтруют.
type GroupFilter struct {
	Status     string
	CategoryID string
	LocationID string
}

// GroupService управляет каталогом групп.
type GroupService struct {
	groups *collection.Collection[models.Group]
	log    *slog.Logger
}

// NewGroupService создает GroupService.
func NewGroupService(store *collection.Store, log *slog.Logger) *GroupService {
	return &GroupService{
		groups: collection.Of[models.Group](store, GroupsKey),
		log:    log,
	}
}

// List возвращает группы, подходящие под фильтр.
func (s *GroupService) List(ctx context.Context, filter GroupFilter) ([]models.Group, error) {
	const op = "directory.GroupService.List"
	all, err := s.groups.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return slices.DeleteFunc(all, func(g models.Group) bool {
		return (filter.Status != "" && g.Status != filter.Status) ||
			(filter.CategoryID != "" && g.CategoryID != filter.CategoryID) ||
			(filter.LocationID != "" && g.LocationID != filter.LocationID)
	}), nil
}

// Read возвращает группу по id.
func (s *GroupService) Read(ctx context.Context, id string) (*models.Group, error) {
	const op = "directory.GroupService.Read"
	all, err := s.groups.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g, err := find(all, groupID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return g, nil
}

// Create добавляет группу на модерацию. Ссылка, уже принадлежащая другой группе,
// даёт apperr.ErrDuplicateIdentifier.
func (s *GroupService) Create(ctx context.Context, in GroupInput) (*models.Group, error) {
	const op = "directory.GroupService.Create"

	links := models.NormalizeIdentifiers(append([]string{in.Link}, in.Links...)...)
	if len(links) == 0 {
		return nil, fmt.Errorf("%s: at least one link is required: %w", op, apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%s: title is required: %w", op, apperr.ErrInvalidInput)
	}

	group := models.Group{
		ID:          newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Links:       links,
		CategoryID:  in.CategoryID,
		LocationID:  in.LocationID,
		CreatedAt:   nowUTC(),
		Status:      models.StatusPending,
		SubmittedBy: in.SubmittedBy,
	}
	_, err := s.groups.Mutate(ctx, func(all []models.Group) ([]models.Group, error) {
		if err := dedup.CheckInsert(all, group.Identifiers()); err != nil {
			return nil, err
		}
		return append(all, group), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("group submitted", slog.String("id", group.ID), slog.Any("links", group.Links))
	return &group, nil
}

// Click увеличивает счётчик переходов и возвращает новое значение.
func (s *GroupService) Click(ctx context.Context, id string) (int, error) {
	const op = "directory.GroupService.Click"
	var clicks int
	_, err := s.groups.Mutate(ctx, func(all []models.Group) ([]models.Group, error) {
		return update(all, groupID, id, func(g *models.Group) error {
			g.ClicksCount++
			clicks = g.ClicksCount
			return nil
		})
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return clicks, nil
}

// SetStatus меняет статус модерации группы.
func (s *GroupService) SetStatus(ctx context.Context, id, status string) error {
	const op = "directory.GroupService.SetStatus"
	if !validModerationStatus(status) {
		return fmt.Errorf("%s: unknown status %q: %w", op, status, apperr.ErrInvalidInput)
	}
	_, err := s.groups.Mutate(ctx, func(all []models.Group) ([]models.Group, error) {
		return update(all, groupID, id, func(g *models.Group) error {
			g.Status = status
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Remove удаляет группу.
func (s *GroupService) Remove(ctx context.Context, id string) error {
	const op = "directory.GroupService.Remove"
	_, err := s.groups.Mutate(ctx, func(all []models.Group) ([]models.Group, error) {
		i := slices.IndexFunc(all, func(g models.Group) bool { return g.ID == id })
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

func groupID(g models.Group) string { return g.ID }
