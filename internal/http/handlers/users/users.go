// Package users реализует HTTP-обработчики администрирования пользователей.
//
// Смена роли и удаление защищённых субъектов запрещены независимо от того,
// кто выполняет запрос.
package users

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
)

type Service interface {
	ListUsers(ctx context.Context) ([]models.User, error)
	SetRole(ctx context.Context, target, role string) error
	DeleteUser(ctx context.Context, target string) error
}

// RoleRequest — новая роль пользователя.
type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	if actor, ok := middlewarectx.UserFromContext(r.Context()); ok {
		log = log.With(slog.String("actor", actor.Email))
	}
	return log
}

// List godoc
// @Summary Список пользователей
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.List")

	all, err := h.service.ListUsers(r.Context())
	if err != nil {
		log.Error("failed to list users", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	views := make([]models.UserView, 0, len(all))
	for _, u := range all {
		views = append(views, u.View())
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"users": views}))
}

// SetRole godoc
// @Summary Сменить роль пользователя
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Param request body RoleRequest true "Роль"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Защищённый пользователь"
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{email}/role [put]
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.SetRole")

	var req RoleRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	target := models.NormalizeEmail(chi.URLParam(r, "email"))
	if err := h.service.SetRole(r.Context(), target, req.Role); err != nil {
		log.Warn("failed to set role", slog.String("target", target), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("role changed", slog.String("target", target), slog.String("role", req.Role))
	render.JSON(w, r, response.OK())
}

// Delete godoc
// @Summary Удалить пользователя
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param email path string true "Email пользователя"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Защищённый пользователь"
// @Failure 404 {object} response.ErrorResponse
// @Router /users/{email} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Delete")

	target := models.NormalizeEmail(chi.URLParam(r, "email"))
	if err := h.service.DeleteUser(r.Context(), target); err != nil {
		log.Warn("failed to delete user", slog.String("target", target), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log.Info("user deleted", slog.String("target", target))
	render.JSON(w, r, response.OK())
}
