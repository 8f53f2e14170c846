// Package reports реализует HTTP-обработчики жалоб.
package reports

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/community-directory/internal/http/request"
	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/services/directory"
)

type Service interface {
	Create(ctx context.Context, in directory.ReportInput) (*models.Report, error)
	List(ctx context.Context, onlyOpen bool) ([]models.Report, error)
	Resolve(ctx context.Context, id string) error
}

// CreateRequest — жалоба на группу, листинг или кампанию.
type CreateRequest struct {
	TargetType string `json:"targetType" validate:"required,oneof=group listing campaign"`
	TargetID   string `json:"targetId" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=1000"`
	Reporter   string `json:"reporter" validate:"omitempty,email"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Create godoc
// @Summary Пожаловаться на запись
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body CreateRequest true "Жалоба"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /reports [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.reports.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	rep, err := h.service.Create(r.Context(), directory.ReportInput{
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     req.Reason,
		Reporter:   req.Reporter,
	})
	if err != nil {
		log.Error("failed to file report", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"report": rep}))
}

// List godoc
// @Summary Список жалоб
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param open query bool false "Только нерешённые"
// @Success 200 {object} response.Response
// @Router /reports [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.List(r.Context(), r.URL.Query().Get("open") == "true")
	if err != nil {
		h.log.Error("failed to list reports", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"reports": res}))
}

// Resolve godoc
// @Summary Закрыть жалобу
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID жалобы"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /reports/{id}/resolve [put]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Resolve(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.log.Warn("failed to resolve report", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}
