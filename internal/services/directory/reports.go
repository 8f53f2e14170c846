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

// ReportInput — жалоба на запись каталога.
type ReportInput struct {
	TargetType string
	TargetID   string
	Reason     string
	Reporter   string
}

// ReportService принимает и разбирает жалобы.
type ReportService struct {
	reports *collection.Collection[models.Report]
	log     *slog.Logger
}

// NewReportService создает ReportService.
func NewReportService(store *collection.Store, log *slog.Logger) *ReportService {
	return &ReportService{
		reports: collection.Of[models.Report](store, ReportsKey),
		log:     log,
	}
}

// Create сохраняет жалобу.
func (s *ReportService) Create(ctx context.Context, in ReportInput) (*models.Report, error) {
	const op = "directory.ReportService.Create"
	switch in.TargetType {
	case "group", "listing", "campaign":
	default:
		return nil, fmt.Errorf("%s: unknown target type %q: %w", op, in.TargetType, apperr.ErrInvalidInput)
	}
	if strings.TrimSpace(in.TargetID) == "" || strings.TrimSpace(in.Reason) == "" {
		return nil, fmt.Errorf("%s: target id and reason are required: %w", op, apperr.ErrInvalidInput)
	}

	r := models.Report{
		ID:         newID(),
		TargetType: in.TargetType,
		TargetID:   in.TargetID,
		Reason:     strings.TrimSpace(in.Reason),
		Reporter:   models.NormalizeEmail(in.Reporter),
		CreatedAt:  nowUTC(),
	}
	_, err := s.reports.Mutate(ctx, func(all []models.Report) ([]models.Report, error) {
		return append(all, r), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("report filed", slog.String("target_type", r.TargetType), slog.String("target_id", r.TargetID))
	return &r, nil
}

// List возвращает жалобы; onlyOpen оставляет только нерешённые.
func (s *ReportService) List(ctx context.Context, onlyOpen bool) ([]models.Report, error) {
	const op = "directory.ReportService.List"
	all, err := s.reports.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !onlyOpen {
		return all, nil
	}
	open := make([]models.Report, 0, len(all))
	for _, r := range all {
		if !r.Resolved {
			open = append(open, r)
		}
	}
	return open, nil
}

// Resolve помечает жалобу решённой. Повторный вызов ничего не меняет.
func (s *ReportService) Resolve(ctx context.Context, id string) error {
	const op = "directory.ReportService.Resolve"
	_, err := s.reports.Mutate(ctx, func(all []models.Report) ([]models.Report, error) {
		return update(all, reportID, id, func(r *models.Report) error {
			if !r.Resolved {
				now := nowUTC()
				r.Resolved, r.ResolvedAt = true, &now
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func reportID(r models.Report) string { return r.ID }
