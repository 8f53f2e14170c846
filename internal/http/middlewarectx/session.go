// Package middlewarectx содержит HTTP middleware аутентификации по сессии,
// проверки роли и ограничения частоты запросов.
//
// SessionMiddleware проверяет токен из заголовка Authorization через каталог
// сессий и кладёт субъекта в контекст запроса. При ошибке проверки отвечает
// 401, если хранилище недоступно, 503.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/apperr"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// User — ключ субъекта (*models.User) в контексте
	User Key = "user"
	// Token — ключ токена сессии в контексте
	Token Key = "token"
)

// Sessions проверяет токены сессий.
type Sessions interface {
	Validate(ctx context.Context, token string) (*models.User, error)
}

// BearerToken возвращает токен из заголовка Authorization или пустую строку.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// UserFromContext возвращает субъекта, положенного SessionMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(User).(*models.User)
	return u, ok && u != nil
}

// SessionMiddleware требует действующую сессию.
func SessionMiddleware(sessions Sessions, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SessionMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := BearerToken(r)
			if token == "" {
				log.Debug("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}

			user, err := sessions.Validate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, apperr.ErrUnauthorized) {
					log.Error("failed to validate session", sl.Err(err))
				}
				response.RenderError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), User, user)
			ctx = context.WithValue(ctx, Token, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только администраторов. Ставится после SessionMiddleware.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}
			if user.Role != models.RoleAdmin {
				log.Warn("admin route denied",
					slog.String("email", user.Email),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("forbidden"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
