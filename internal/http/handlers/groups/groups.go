// Package groups реализует HTTP-обработчики каталога групп.
package groups

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

// Service описывает бизнес-логику групп.
type Service interface {
	List(ctx context.Context, filter directory.GroupFilter) ([]models.Group, error)
	Read(ctx context.Context, id string) (*models.Group, error)
	Create(ctx context.Context, in directory.GroupInput) (*models.Group, error)
	Click(ctx context.Context, id string) (int, error)
	SetStatus(ctx context.Context, id, status string) error
	Remove(ctx context.Context, id string) error
}

// CreateRequest — новая группа. Можно передать одну ссылку в link или несколько в links.
type CreateRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=2000"`
	Link        string   `json:"link"`
	Links       []string `json:"links"`
	CategoryID  string   `json:"categoryId" validate:"required"`
	LocationID  string   `json:"locationId" validate:"required"`
}

// StatusRequest — решение модератора.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// Handler обрабатывает запросы /groups.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// List godoc
// @Summary Список групп
// @Tags Groups
// @Produce json
// @Param status query string false "Статус модерации"
// @Param categoryId query string false "Категория"
// @Param locationId query string false "Локация"
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /groups [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.List")

	q := r.URL.Query()
	res, err := h.service.List(r.Context(), directory.GroupFilter{
		Status:     q.Get("status"),
		CategoryID: q.Get("categoryId"),
		LocationID: q.Get("locationId"),
	})
	if err != nil {
		log.Error("failed to list groups", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"groups": res}))
}

// Read godoc
// @Summary Группа по id
// @Tags Groups
// @Produce json
// @Param id path string true "ID группы"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /groups/{id} [get]
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.Read")

	g, err := h.service.Read(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Warn("failed to read group", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"group": g}))
}

// Create godoc
// @Summary Добавить группу
// @Description Группа попадает на модерацию. Ссылки должны быть уникальны в каталоге.
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRequest true "Группа"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Ссылка уже есть в каталоге"
// @Failure 422 {object} response.ErrorResponse
// @Router /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.Create")

	var req CreateRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	in := directory.GroupInput{
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		Links:       req.Links,
		CategoryID:  req.CategoryID,
		LocationID:  req.LocationID,
	}
	if user, ok := middlewarectx.UserFromContext(r.Context()); ok {
		in.SubmittedBy = user.Email
	}

	g, err := h.service.Create(r.Context(), in)
	if err != nil {
		log.Warn("failed to create group", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"group": g}))
}

// Click godoc
// @Summary Учесть переход по группе
// @Tags Groups
// @Produce json
// @Param id path string true "ID группы"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /groups/{id}/click [post]
func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.Click")

	clicks, err := h.service.Click(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		log.Warn("failed to count click", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"clicksCount": clicks}))
}

// SetStatus godoc
// @Summary Модерация группы
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID группы"
// @Param request body StatusRequest true "Новый статус"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /groups/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.SetStatus")

	var req StatusRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.SetStatus(r.Context(), id, req.Status); err != nil {
		log.Warn("failed to set group status", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("group moderated", slog.String("id", id), slog.String("status", req.Status))
	render.JSON(w, r, response.OK())
}

// Remove godoc
// @Summary Удалить группу
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID группы"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /groups/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.groups.Remove")

	id := chi.URLParam(r, "id")
	if err := h.service.Remove(r.Context(), id); err != nil {
		log.Warn("failed to remove group", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("group removed", slog.String("id", id))
	render.JSON(w, r, response.OK())
}
