package datesantiere

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	authhandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/auth"
	contacthandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/contact"
	paymentshandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/payments"
	santierehandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/santiere"
	scriptshandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/scripts"
	settingshandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/settings"
	usershandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/users"
	workspacehandler "github.com/magabrotheeeer/datesantiere/internal/http/handlers/workspace"
	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
)

// Handlers обработчики всех разделов API.
type Handlers struct {
	Auth      *authhandler.Handler
	Santiere  *santierehandler.Handler
	Workspace *workspacehandler.Handler
	Payments  *paymentshandler.Handler
	Users     *usershandler.Handler
	Contact   *contacthandler.Handler
	Settings  *settingshandler.Handler
	Scripts   *scriptshandler.Handler
}

// RouterDeps зависимости промежуточных обработчиков.
type RouterDeps struct {
	Parser         middlewarectx.TokenParser
	Users          middlewarectx.UserLookup
	Limiter        *middlewarectx.RateLimiter
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
}

// RegisterRoutes регистрирует маршруты API, метрики и документацию.
func RegisterRoutes(r chi.Router, log *slog.Logger, deps RouterDeps, h Handlers) {
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)
	r.Use(deps.Metrics.Middleware)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}).Handler)

	authenticate := middlewarectx.Authenticate(deps.Parser, deps.Users, log)
	optionalAuth := middlewarectx.OptionalAuth(deps.Parser, deps.Users, log)
	permission := func(name string, allowed func(access.Permissions) bool) func(http.Handler) http.Handler {
		return middlewarectx.RequirePermission(log, name, allowed)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/webhook", h.Payments.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Use(deps.Limiter.Middleware(log))

			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
			r.Post("/password/forgot", h.Auth.ForgotPassword)
			r.Post("/password/reset", h.Auth.ResetPassword)

			r.Get("/stats", h.Santiere.Stats)
			r.Get("/santiere", h.Santiere.List)
			r.Get("/santiere/judete", h.Santiere.Judete)
			r.Get("/santiere/categorii", h.Santiere.Categorii)
			r.Get("/santiere/{id}", h.Santiere.Details)

			r.Post("/contact", h.Contact.Submit)
			r.Post("/newsletter/subscribe", h.Contact.Subscribe)
			r.Get("/newsletter/unsubscribe", h.Contact.Unsubscribe)
			r.Post("/newsletter/unsubscribe", h.Contact.Unsubscribe)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(deps.Limiter.Middleware(log))

			r.Get("/profile", h.Auth.Profile)
			r.Put("/profile", h.Auth.UpdateProfile)

			r.Get("/santiere/export", h.Santiere.UserExport)
			r.Post("/santiere/{id}/purchase", h.Payments.Purchase)
			r.Post("/subscriptions/checkout", h.Payments.Checkout)

			r.Get("/santiere/{id}/notes", h.Workspace.Notes)
			r.Post("/santiere/{id}/notes", h.Workspace.AddNote)
			r.Delete("/notes/{id}", h.Workspace.DeleteNote)

			r.Get("/favorites", h.Workspace.Favorites)
			r.Post("/favorites/{santierID}", h.Workspace.AddFavorite)
			r.Delete("/favorites/{santierID}", h.Workspace.RemoveFavorite)

			r.Get("/searches", h.Workspace.SavedSearches)
			r.Post("/searches", h.Workspace.SaveSearch)
			r.Delete("/searches/{id}", h.Workspace.DeleteSavedSearch)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(log))

				r.Get("/permissions", h.Users.Permissions)

				r.Group(func(r chi.Router) {
					r.Use(permission("manage_users", middlewarectx.CanManageUsers))
					r.Get("/users", h.Users.List)
					r.Get("/users/{id}", h.Users.Get)
					r.Put("/users/{id}", h.Users.Update)
					r.Delete("/users/{id}", h.Users.Delete)
					r.Post("/contacts/{id}/process", h.Contact.Process)
				})

				r.Group(func(r chi.Router) {
					r.Use(permission("view_reports", middlewarectx.CanViewReports))
					r.Get("/reports", h.Payments.Report)
					r.Get("/contacts", h.Contact.List)
				})

				r.Group(func(r chi.Router) {
					r.Use(permission("manage_santiere", middlewarectx.CanManageSantiere))
					r.Get("/santiere", h.Santiere.AdminList)
					r.Get("/santiere/statuses", h.Santiere.Statuses)
					r.Get("/santiere/{id}", h.Santiere.AdminGet)
					r.Post("/santiere", h.Santiere.Create)
					r.Put("/santiere/{id}", h.Santiere.Update)
				})
				r.With(permission("delete_santiere", middlewarectx.CanDeleteSantiere)).
					Delete("/santiere/{id}", h.Santiere.Delete)
				r.With(permission("export_data", middlewarectx.CanExportData)).
					Get("/santiere/export", h.Santiere.AdminExport)
				r.With(permission("view_logs", middlewarectx.CanViewLogs)).
					Get("/santiere/{id}/history", h.Santiere.History)

				r.Group(func(r chi.Router) {
					r.Use(permission("manage_payments", middlewarectx.CanManagePayments))
					r.Get("/prices", h.Payments.ListPrices)
					r.Get("/prices/{id}", h.Payments.GetPrice)
					r.Post("/prices", h.Payments.CreatePrice)
					r.Put("/prices/{id}", h.Payments.UpdatePrice)
					r.Delete("/prices/{id}", h.Payments.DeletePrice)
				})

				// Настройки и скрипты доступны только суперадминистратору.
				r.Group(func(r chi.Router) {
					r.Use(permission("manage_settings", middlewarectx.CanManageSettings))
					r.Get("/settings", h.Settings.List)
					r.Get("/settings/{id}", h.Settings.Get)
					r.Post("/settings", h.Settings.Create)
					r.Put("/settings/{id}", h.Settings.Update)
					r.Delete("/settings/{id}", h.Settings.Delete)

					r.Get("/scripts", h.Scripts.List)
					r.Post("/scripts/run", h.Scripts.Run)
					r.Get("/scripts/runs", h.Scripts.Runs)
				})
			})
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
