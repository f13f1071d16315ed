// Package middlewarectx содержит HTTP middleware для проверки JWT токенов и прав доступа.
//
// Authenticate проверяет токен в заголовке Authorization, загружает актуальное состояние
// пользователя и кладёт его идентификатор, e-mail и тип администратора в контекст запроса.
// OptionalAuth делает то же самое, но пропускает анонимные запросы.
package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/datesantiere/internal/http/response"
	"github.com/magabrotheeeer/datesantiere/internal/lib/jwt"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ для идентификатора пользователя в контексте
	UserID Key = "user_id"
	// Email ключ для e-mail пользователя в контексте
	Email Key = "email"
	// AdminType ключ для типа администратора в контексте
	AdminType Key = "admin_type"
)

// TokenParser разбирает JWT токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.CustomClaims, error)
}

// UserLookup загружает пользователя по идентификатору из токена.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Identity данные аутентифицированного пользователя.
type Identity struct {
	UserID    string
	Email     string
	AdminType string
}

// IdentityFrom возвращает пользователя из контекста. ok равен false для анонимного запроса.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, _ := ctx.Value(UserID).(string)
	if id == "" {
		return Identity{}, false
	}
	email, _ := ctx.Value(Email).(string)
	adminType, _ := ctx.Value(AdminType).(string)
	return Identity{UserID: id, Email: email, AdminType: adminType}, true
}

// WithIdentity кладёт пользователя в контекст.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, UserID, id.UserID)
	ctx = context.WithValue(ctx, Email, id.Email)
	return context.WithValue(ctx, AdminType, id.AdminType)
}

var errNoToken = errors.New("missing authorization header")

// resolve проверяет токен и возвращает актуальные данные пользователя.
// Тип администратора берётся из базы, чтобы отзыв прав действовал сразу.
func resolve(r *http.Request, parser TokenParser, users UserLookup) (Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return Identity{}, errNoToken
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, errors.New("invalid authorization header")
	}
	claims, err := parser.ParseToken(strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return Identity{}, err
	}
	user, err := users.GetUserByID(r.Context(), claims.UserID())
	if err != nil {
		return Identity{}, err
	}
	if !user.IsActive {
		return Identity{}, errors.New("account is disabled")
	}
	return Identity{UserID: user.ID, Email: user.Email, AdminType: user.AdminType}, nil
}

// Authenticate возвращает middleware, который пропускает только запросы с валидным токеном.
func Authenticate(parser TokenParser, users UserLookup, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.Authenticate"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			id, err := resolve(r, parser, users)
			if err != nil {
				log.Warn("authentication failed", sl.Err(err))
				response.Send(w, r, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth возвращает middleware, который распознаёт пользователя при наличии токена.
// Запрос без токена или с невалидным токеном обрабатывается как анонимный.
func OptionalAuth(parser TokenParser, users UserLookup, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolve(r, parser, users)
			if err != nil {
				if !errors.Is(err, errNoToken) {
					log.Debug("ignoring invalid token", slog.String("request_id", middleware.GetReqID(r.Context())), sl.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
