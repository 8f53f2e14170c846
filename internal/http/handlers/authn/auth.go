// Package authn реализует HTTP-обработчики регистрации, подтверждения email,
// входа, выхода и сброса пароля.
//
// Ответы на запрос кода сброса и на выход всегда успешны: клиент не узнаёт,
// существует ли пользователь и была ли сессия.
package authn

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/community-directory/internal/http/middlewarectx"
	"github.com/magabrotheeeer/community-directory/internal/http/request"
	"github.com/magabrotheeeer/community-directory/internal/http/response"
	"github.com/magabrotheeeer/community-directory/internal/lib/sl"
	"github.com/magabrotheeeer/community-directory/internal/models"
)

// Service описывает бизнес-логику аккаунтов, нужную обработчикам.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	ResendVerification(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (string, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	Logout(ctx context.Context, token string)
	ForgotPassword(ctx context.Context, email string)
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

// CredentialsRequest — email и пароль.
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyRequest — код подтверждения регистрации.
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric"`
}

// EmailRequest — запрос, содержащий только email.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetRequest — новый пароль и код сброса.
type ResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// SessionResponse — выданный токен сессии.
type SessionResponse struct {
	Token string          `json:"token"`
	User  models.UserView `json:"user"`
}

// Handler обрабатывает запросы /auth/*.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Register godoc
// @Summary Регистрация
// @Description Создаёт неподтверждённого пользователя и отправляет код подтверждения на email.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Email и пароль"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse "Email уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Пароль не соответствует политике"
// @Router /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.Register")

	var req CredentialsRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("user registered", slog.String("email", user.Email))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(user.View()))
}

// ResendVerification godoc
// @Summary Повторная отправка кода подтверждения
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} response.Response
// @Router /auth/verify/resend [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.ResendVerification")

	var req EmailRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		log.Error("failed to resend verification code", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Verify godoc
// @Summary Подтверждение email
// @Description Гасит код регистрации и открывает сессию.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Email и код"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Код неверен или истёк"
// @Router /auth/verify [post]
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.Verify")

	var req VerifyRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	token, err := h.service.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		log.Warn("verification failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]string{"token": token}))
}

// Login godoc
// @Summary Вход
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Email и пароль"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 403 {object} response.ErrorResponse "Email не подтверждён"
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.Login")

	var req CredentialsRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn("login failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("login success", slog.String("email", user.Email))
	render.JSON(w, r, response.StatusOKWithData(SessionResponse{Token: token, User: user.View()}))
}

// Logout godoc
// @Summary Выход
// @Description Отзывает сессию из заголовка Authorization. Всегда отвечает 200.
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middlewarectx.BearerToken(r); token != "" {
		h.service.Logout(r.Context(), token)
	}
	render.JSON(w, r, response.OK())
}

// ForgotPassword godoc
// @Summary Запрос кода сброса пароля
// @Description Отправляет код сброса, если пользователь существует. Всегда отвечает 200.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} response.Response
// @Router /auth/password/forgot [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.ForgotPassword")

	var req EmailRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	h.service.ForgotPassword(r.Context(), req.Email)
	render.JSON(w, r, response.OK())
}

// ResetPassword godoc
// @Summary Сброс пароля по коду
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body ResetRequest true "Email, код и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Код неверен или истёк"
// @Failure 422 {object} response.ErrorResponse "Пароль не соответствует политике"
// @Router /auth/password/reset [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.authn.ResetPassword")

	var req ResetRequest
	if !request.DecodeJSON(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		log.Warn("password reset failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Me godoc
// @Summary Текущий пользователь
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /auth/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middlewarectx.UserFromContext(r.Context())
	if !ok {
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	render.JSON(w, r, response.StatusOKWithData(user.View()))
}
