// Package settings реализует HTTP-обработчики управления настройками ключей API.
package settings

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/http/request"
	"github.com/magabrotheeeer/datesantiere/internal/http/response"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Service описывает операции с настройками.
type Service interface {
	List(ctx context.Context) ([]models.APIKeySetting, error)
	Get(ctx context.Context, id int) (*models.APIKeySetting, error)
	Create(ctx context.Context, in models.APIKeySettingInput, updatedBy string) (*models.APIKeySetting, error)
	Update(ctx context.Context, id int, in models.APIKeySettingInput, updatedBy string) (*models.APIKeySetting, error)
	Delete(ctx context.Context, id int) error
}

// Handler обрабатывает запросы настроек.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, validate: validator.New()}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func editor(r *http.Request) string {
	id, _ := middlewarectx.IdentityFrom(r.Context())
	return id.Email
}

// List возвращает все настройки.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.logger(r, "handlers.settings.List").Error("failed to list settings", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(items))
}

// Get возвращает настройку по идентификатору.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger(r, "handlers.settings.Get").Warn("failed to load setting", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(item))
}

// Create godoc
// @Summary Создание настройки
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.APIKeySettingInput true "Ключ и значение"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Ключ уже существует"
// @Router /admin/settings [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.settings.Create")

	var in models.APIKeySettingInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}
	item, err := h.service.Create(r.Context(), in, editor(r))
	if err != nil {
		log.Warn("failed to create setting", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(item))
}

// Update изменяет настройку.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.settings.Update")

	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	var in models.APIKeySettingInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}
	item, err := h.service.Update(r.Context(), id, in, editor(r))
	if err != nil {
		log.Warn("failed to update setting", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(item))
}

// Delete удаляет настройку.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger(r, "handlers.settings.Delete").Warn("failed to delete setting", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}
