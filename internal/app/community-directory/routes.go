package communitydirectory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/community-directory/internal/http/handlers/authn"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/campaigns"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/groups"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/health"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/listings"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/reports"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/subscribers"
	"github.com/magabrotheeeer/community-directory/internal/http/handlers/users"
	"github.com/magabrotheeeer/community-directory/internal/http/middlewarectx"
	"github.com/magabrotheeeer/community-directory/internal/metrics"
	"github.com/magabrotheeeer/community-directory/internal/services/account"
	directorysvc "github.com/magabrotheeeer/community-directory/internal/services/directory"
	"github.com/magabrotheeeer/community-directory/internal/storage"
)

// Services — всё, что нужно маршрутам.
type Services struct {
	Auth        *account.AuthService
	Sessions    middlewarectx.Sessions
	Groups      *directorysvc.GroupService
	Campaigns   *directorysvc.CampaignService
	Subscribers *directorysvc.SubscriberService
	Reports     *directorysvc.ReportService
	Listings    *directorysvc.ListingService
	Backend     storage.Backend
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, svc Services, m *metrics.Metrics, limiter *middlewarectx.RateLimiter) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		m.Middleware,
	)

	authHandler := authn.New(logger, svc.Auth)
	groupHandler := groups.New(logger, svc.Groups)
	campaignHandler := campaigns.New(logger, svc.Campaigns)
	subscriberHandler := subscribers.New(logger, svc.Subscribers)
	reportHandler := reports.New(logger, svc.Reports)
	listingHandler := listings.New(logger, svc.Listings)
	userHandler := users.New(logger, svc.Auth)

	requireSession := middlewarectx.SessionMiddleware(svc.Sessions, logger)
	requireAdmin := middlewarectx.RequireAdmin(logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(limiter, logger))
			r.Post("/auth/register", authHandler.Register)
			r.Post("/auth/verify", authHandler.Verify)
			r.Post("/auth/verify/resend", authHandler.ResendVerification)
			r.Post("/auth/login", authHandler.Login)
			r.Post("/auth/password/forgot", authHandler.ForgotPassword)
			r.Post("/auth/password/reset", authHandler.ResetPassword)
			r.Post("/subscribers", subscriberHandler.Subscribe)
			r.Post("/reports", reportHandler.Create)
		})
		r.Post("/auth/logout", authHandler.Logout)
		r.Get("/groups", groupHandler.List)
		r.Get("/groups/{id}", groupHandler.Read)
		r.Post("/groups/{id}/click", groupHandler.Click)
		r.Get("/campaigns", campaignHandler.List)
		r.Get("/listings", listingHandler.List)

		// Требуется сессия
		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/auth/me", authHandler.Me)
			r.Post("/groups", groupHandler.Create)
			r.Post("/campaigns/{id}/like", campaignHandler.Like)
			r.Post("/listings", listingHandler.Create)

			// Только администраторы
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Put("/groups/{id}/status", groupHandler.SetStatus)
				r.Delete("/groups/{id}", groupHandler.Remove)
				r.Post("/campaigns", campaignHandler.Create)
				r.Get("/subscribers", subscriberHandler.List)
				r.Get("/reports", reportHandler.List)
				r.Put("/reports/{id}/resolve", reportHandler.Resolve)
				r.Put("/listings/{id}/status", listingHandler.SetStatus)
				r.Get("/users", userHandler.List)
				r.Put("/users/{email}/role", userHandler.SetRole)
				r.Delete("/users/{email}", userHandler.Delete)
			})
		})
	})

	r.Method(http.MethodGet, "/health", health.New(logger, svc.Backend))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
