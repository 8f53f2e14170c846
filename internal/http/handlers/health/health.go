package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
)

const pingTimeout = 2 * time.Second

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	log     *slog.Logger
	storage Pinger
}

func New(log *slog.Logger, storage Pinger) *Handler {
	return &Handler{log: log, storage: storage}
}

// ServeHTTP godoc
// @Summary Проверка доступности
// @Tags Health
// @Produce json
// @Success 200 {object} response.Response
// @Failure 503 {object} response.ErrorResponse
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Error("storage ping failed", slog.String("op", op), sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage unavailable"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"status": "ok"}))
}
