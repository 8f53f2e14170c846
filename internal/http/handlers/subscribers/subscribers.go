// Package subscribers реализует HTTP-обработчики подписки на рассылку.
package subscribers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/community-directory/internal/http/request"
	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

type Service interface {
	Subscribe(ctx context.Context, email string) (*models.Subscriber, error)
	List(ctx context.Context) ([]models.Subscriber, error)
}

// SubscribeRequest — email подписчика.
type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

// Subscribe godoc
// @Summary Подписаться на рассылку
// @Tags Subscribers
// @Accept json
// @Produce json
// @Param request body SubscribeRequest true "Email"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Уже подписан"
// @Router /subscribers [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscribers.Subscribe"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req SubscribeRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	sub, err := h.service.Subscribe(r.Context(), req.Email)
	if err != nil {
		log.Warn("failed to subscribe", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"subscriber": sub}))
}

// List godoc
// @Summary Список подписчиков
// @Tags Subscribers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /subscribers [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.List(r.Context())
	if err != nil {
		h.log.Error("failed to list subscribers", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"subscribers": res}))
}
