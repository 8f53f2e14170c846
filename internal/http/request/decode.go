// Package request декодирует и валидирует JSON тела запросов.
package request

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
)

const maxBodyBytes = 1 << 20

// DecodeJSON читает тело запроса в dst и проверяет его валидатором.
// При ошибке сам пишет ответ (400 или 422) и возвращает false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		log.Error("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return false
		}
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}
