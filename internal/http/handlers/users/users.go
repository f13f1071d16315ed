// Package users реализует HTTP-обработчики администрирования пользователей и
// выдачу набора прав текущего администратора.
package users

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/http/request"
	"github.com/magabrotheeeer/datesantiere/internal/http/response"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	userservice "github.com/magabrotheeeer/datesantiere/internal/services/users"
)

// Service описывает операции администрирования пользователей.
type Service interface {
	List(ctx context.Context, caller userservice.Caller, f models.UserFilter) (models.Page[models.User], error)
	Get(ctx context.Context, caller userservice.Caller, id string) (*models.User, error)
	Update(ctx context.Context, caller userservice.Caller, id string, upd models.AdminUserUpdate) (*models.User, error)
	Delete(ctx context.Context, caller userservice.Caller, id string) error
}

// Handler обрабатывает запросы администрирования пользователей.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
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

func callerFrom(r *http.Request) userservice.Caller {
	id, _ := middlewarectx.IdentityFrom(r.Context())
	return userservice.Caller{ID: id.UserID, AdminType: id.AdminType}
}

// PermissionsResponse права текущего администратора.
type PermissionsResponse struct {
	AdminType   string             `json:"admin_type"`
	Permissions access.Permissions `json:"permissions"`
}

// Permissions godoc
// @Summary Права текущего администратора
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/permissions [get]
func (h *Handler) Permissions(w http.ResponseWriter, r *http.Request) {
	id, _ := middlewarectx.IdentityFrom(r.Context())
	render.JSON(w, r, response.OKWithData(PermissionsResponse{
		AdminType:   id.AdminType,
		Permissions: access.PermissionsFor(id.AdminType),
	}))
}

// List godoc
// @Summary Список пользователей
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param search query string false "E-mail, имя, фамилия или компания"
// @Param account_type query string false "Тариф"
// @Param admin_type query string false "Тип администратора, None для обычных пользователей"
// @Param is_active query bool false "Активность"
// @Param page query int false "Номер страницы"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := models.UserFilter{
		Search:      strings.TrimSpace(q.Get("search")),
		AccountType: strings.TrimSpace(q.Get("account_type")),
		AdminType:   strings.TrimSpace(q.Get("admin_type")),
		IsActive:    request.OptionalBool(r, "is_active"),
		Page:        request.Page(r),
	}
	page, err := h.service.List(r.Context(), callerFrom(r), f)
	if err != nil {
		h.logger(r, "handlers.users.List").Warn("failed to list users", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(page))
}

// Get возвращает пользователя по идентификатору.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.Get(r.Context(), callerFrom(r), id)
	if err != nil {
		h.logger(r, "handlers.users.Get").Warn("failed to load user", slog.String("user_id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(user))
}

// Update godoc
// @Summary Изменение пользователя
// @Description Изменение администратора и смена типа администратора требуют права управления администраторами.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path string true "Идентификатор пользователя"
// @Param request body models.AdminUserUpdate true "Новые данные"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /admin/users/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Update")
	id := chi.URLParam(r, "id")

	var upd models.AdminUserUpdate
	if !request.Decode(w, r, log, h.validate, &upd) {
		return
	}

	user, err := h.service.Update(r.Context(), callerFrom(r), id, upd)
	if err != nil {
		log.Warn("failed to update user", slog.String("user_id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("user updated", slog.String("user_id", id))
	render.JSON(w, r, response.OKWithData(user))
}

// Delete удаляет пользователя. Удалить собственный аккаунт нельзя.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.users.Delete")
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), callerFrom(r), id); err != nil {
		log.Warn("failed to delete user", slog.String("user_id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("user deleted", slog.String("user_id", id))
	render.JSON(w, r, response.OK())
}
