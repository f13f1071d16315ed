package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/http/response"
)

// RequireAdmin пропускает только пользователей с типом администратора.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				response.Send(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !access.IsAdmin(id.AdminType) {
				log.Warn("admin area access denied",
					slog.String("user_id", id.UserID),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.Send(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission пропускает пользователей, у типа администратора которых есть право allowed.
func RequirePermission(log *slog.Logger, name string, allowed func(access.Permissions) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				response.Send(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !allowed(access.PermissionsFor(id.AdminType)) {
				log.Warn("permission denied",
					slog.String("user_id", id.UserID),
					slog.String("permission", name),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.Send(w, r, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Права, используемые в маршрутах.
var (
	CanManageUsers    = func(p access.Permissions) bool { return p.ManageUsers }
	CanManageSantiere = func(p access.Permissions) bool { return p.ManageSantiere }
	CanDeleteSantiere = func(p access.Permissions) bool { return p.DeleteSantiere }
	CanManagePayments = func(p access.Permissions) bool { return p.ManagePayments }
	CanViewReports    = func(p access.Permissions) bool { return p.ViewReports }
	CanExportData     = func(p access.Permissions) bool { return p.ExportData }
	CanManageSettings = func(p access.Permissions) bool { return p.ManageSettings }
	CanViewLogs       = func(p access.Permissions) bool { return p.ViewLogs }
)
