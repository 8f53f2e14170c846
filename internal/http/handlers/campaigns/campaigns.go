// Package campaigns реализует HTTP-обработчики благотворительных кампаний.
package campaigns

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/community-directory/internal/http/middlewarectx"
	"github.com/magabrotheeeer/community-directory/internal/http/request"
	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
	"github.com/magabrotheeeer/community-directory/internal/services/directory"
)

// Service описывает бизнес-логику кампаний.
type Service interface {
	List(ctx context.Context) ([]models.Campaign, error)
	Create(ctx context.Context, in directory.CampaignInput) (*models.Campaign, error)
	ToggleLike(ctx context.Context, id, email string) (*models.Campaign, error)
}

// CreateRequest — новая кампания.
type CreateRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	GoalAmount  int    `json:"goalAmount" validate:"min=0"`
	URL         string `json:"url" validate:"omitempty,url"`
}

// Handler обрабатывает запросы /campaigns.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// List godoc
// @Summary Список кампаний
// @Tags Campaigns
// @Produce json
// @Success 200 {object} response.Response
// @Router /campaigns [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.campaigns.List"
	res, err := h.service.List(r.Context())
	if err != nil {
		h.log.Error("failed to list campaigns", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"campaigns": res}))
}

// Create godoc
// @Summary Создать кампанию
// @Tags Campaigns
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Кампания"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /campaigns [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.campaigns.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), directory.CampaignInput{
		Title:       req.Title,
		Description: req.Description,
		GoalAmount:  req.GoalAmount,
		URL:         req.URL,
	})
	if err != nil {
		log.Error("failed to create campaign", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"campaign": c}))
}

// Like godoc
// @Summary Поставить или снять отметку «нравится»
// @Tags Campaigns
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID кампании"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /campaigns/{id}/like [post]
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.campaigns.Like"
	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	c, err := h.service.ToggleLike(r.Context(), chi.URLParam(r, "id"), user.Email)
	if err != nil {
		h.log.Warn("failed to toggle like", slog.String("op", op), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"campaign": c}))
}
