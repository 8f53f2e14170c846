// Package listings реализует HTTP-обработчики бизнес-листингов.
package listings

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

type Service interface {
	List(ctx context.Context, onlyApproved bool) ([]models.BusinessListing, error)
	Create(ctx context.Context, in directory.ListingInput) (*models.BusinessListing, error)
	SetStatus(ctx context.Context, id, status string) error
}

// CreateRequest — новый листинг.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Website     string `json:"website" validate:"required,url"`
	Description string `json:"description" validate:"max=2000"`
	CategoryID  string `json:"categoryId" validate:"required"`
	LocationID  string `json:"locationId" validate:"required"`
}

// StatusRequest — решение модератора.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// List godoc
// @Summary Одобренные листинги
// @Tags Listings
// @Produce json
// @Success 200 {object} response.Response
// @Router /listings [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.List(r.Context(), true)
	if err != nil {
		h.log.Error("failed to list listings", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"listings": res}))
}

// Create godoc
// @Summary Добавить листинг
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Листинг"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Сайт уже в каталоге"
// @Router /listings [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listings.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req CreateRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	in := directory.ListingInput{
		Name:        req.Name,
		Website:     req.Website,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		LocationID:  req.LocationID,
	}
	if user, ok := middlewarectx.UserFromContext(r.Context()); ok {
		in.Owner = user.Email
	}

	l, err := h.service.Create(r.Context(), in)
	if err != nil {
		log.Warn("failed to create listing", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"listing": l}))
}

// SetStatus godoc
// @Summary Модерация листинга
// @Tags Listings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID листинга"
// @Param request body StatusRequest true "Новый статус"
// @Success 200 {object} response.Response
// @Router /listings/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.listings.SetStatus"
	log := h.log.With(slog.String("op", op))

	var req StatusRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}
	if err := h.service.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status); err != nil {
		log.Warn("failed to set listing status", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}
