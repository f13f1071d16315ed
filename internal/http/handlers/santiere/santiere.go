// Package santiere реализует HTTP-обработчики каталога șantiere: публичный список и карточку,
// справочники фильтров, статистику главной страницы, администрирование и выгрузку в Excel.
package santiere

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/http/request"
	"github.com/magabrotheeeer/datesantiere/internal/http/response"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/services/export"
	"github.com/magabrotheeeer/datesantiere/internal/services/history"
	santierservice "github.com/magabrotheeeer/datesantiere/internal/services/santier"
)

// Service описывает операции каталога.
type Service interface {
	List(ctx context.Context, f models.SantierFilter) (models.Page[models.Santier], error)
	AdminList(ctx context.Context, f models.SantierFilter) (models.Page[models.Santier], error)
	Details(ctx context.Context, id int, userID string) (*models.SantierDetails, error)
	Judete(ctx context.Context) ([]string, error)
	Categorii(ctx context.Context) ([]string, error)
	Statuses(ctx context.Context) ([]string, error)
	Home(ctx context.Context) (*santierservice.HomeData, error)
	Get(ctx context.Context, id int) (*models.Santier, error)
	Create(ctx context.Context, in models.SantierInput, actor history.Actor) (*models.Santier, error)
	Update(ctx context.Context, id int, in models.SantierInput, actor history.Actor) (*models.Santier, error)
	Delete(ctx context.Context, id int, actor history.Actor) error
	History(ctx context.Context, id int) ([]models.SantierHistory, error)
}

// Exporter формирует Excel-выгрузки.
type Exporter interface {
	AdminExport(ctx context.Context, f models.SantierFilter) (*export.File, error)
	UserExport(ctx context.Context, userID string, f models.SantierFilter) (*export.File, error)
}

// Handler обрабатывает запросы каталога.
type Handler struct {
	log      *slog.Logger
	service  Service
	exporter Exporter
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, exporter Exporter) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		exporter: exporter,
		validate: validator.New(),
	}
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

func actorFrom(r *http.Request) history.Actor {
	id, _ := middlewarectx.IdentityFrom(r.Context())
	return history.Actor{UserID: id.UserID, IPAddress: request.ClientIP(r)}
}

// List godoc
// @Summary Публичный список șantiere
// @Description Активные карточки без контактных данных, 20 на страницу, новые первыми.
// @Tags Santiere
// @Produce  json
// @Param search query string false "Поиск по названию, описанию и бенефициару"
// @Param judet query string false "Județ"
// @Param categorie query string false "Categorie"
// @Param status query string false "Status"
// @Param page query int false "Номер страницы"
// @Success 200 {object} response.Response
// @Router /santiere [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.List")

	f := request.SantierFilter(r)
	f.IsActive = nil
	page, err := h.service.List(r.Context(), f)
	if err != nil {
		log.Error("failed to list santiere", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(page))
}

// Details godoc
// @Summary Карточка șantier
// @Description Полные данные доступны при купленном доступе, подписке или в пределах месячного лимита просмотров.
// @Description Гость и пользователь с исчерпанным лимитом получают карточку без контактов.
// @Tags Santiere
// @Produce  json
// @Param id path int true "Идентификатор"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /santiere/{id} [get]
func (h *Handler) Details(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.Details")

	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	identity, _ := middlewarectx.IdentityFrom(r.Context())
	details, err := h.service.Details(r.Context(), id, identity.UserID)
	if err != nil {
		log.Warn("failed to load santier", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(details))
}

// Judete возвращает список județe активных карточек.
func (h *Handler) Judete(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "handlers.santiere.Judete", h.service.Judete)
}

// Categorii возвращает список категорий активных карточек.
func (h *Handler) Categorii(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "handlers.santiere.Categorii", h.service.Categorii)
}

// Statuses возвращает список статусов всех карточек.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "handlers.santiere.Statuses", h.service.Statuses)
}

func (h *Handler) renderList(w http.ResponseWriter, r *http.Request, op string, load func(context.Context) ([]string, error)) {
	values, err := load(r.Context())
	if err != nil {
		h.logger(r, op).Error("failed to load values", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(values))
}

// Stats godoc
// @Summary Данные главной страницы
// @Description Количество активных карточек, добавленных за месяц и за неделю, и последние карточки.
// @Tags Santiere
// @Produce  json
// @Success 200 {object} response.Response
// @Router /stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	home, err := h.service.Home(r.Context())
	if err != nil {
		h.logger(r, "handlers.santiere.Stats").Error("failed to load home data", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(home))
}

// AdminList возвращает страницу карточек для админки, включая неактивные.
func (h *Handler) AdminList(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.AdminList")

	f := request.SantierFilter(r)
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && size > 0 && size <= 100 {
		f.PageSize = size
	}
	page, err := h.service.AdminList(r.Context(), f)
	if err != nil {
		log.Error("failed to list santiere", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(page))
}

// AdminGet возвращает карточку независимо от активности.
func (h *Handler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	st, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger(r, "handlers.santiere.AdminGet").Warn("failed to load santier", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(st))
}

// Create godoc
// @Summary Создание карточки
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.SantierInput true "Данные карточки"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Failure 422 {object} response.ErrorResponse
// @Router /admin/santiere [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.Create")

	var in models.SantierInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}

	st, err := h.service.Create(r.Context(), in, actorFrom(r))
	if err != nil {
		log.Error("failed to create santier", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(st))
}

// Update godoc
// @Summary Изменение карточки
// @Description Идентификатор в теле должен совпадать с идентификатором пути. Параллельное изменение даёт 409.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "Идентификатор"
// @Param request body models.SantierInput true "Данные карточки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /admin/santiere/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.Update")

	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	var in models.SantierInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}

	st, err := h.service.Update(r.Context(), id, in, actorFrom(r))
	if err != nil {
		log.Warn("failed to update santier", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(st))
}

// Delete помечает карточку неактивной.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.Delete")

	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), id, actorFrom(r)); err != nil {
		log.Warn("failed to delete santier", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// History возвращает журнал изменений карточки, новые записи первыми.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		h.logger(r, "handlers.santiere.History").Warn("failed to load history", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(entries))
}

// AdminExport godoc
// @Summary Выгрузка в Excel для администратора
// @Description Весь отфильтрованный список, включая неактивные карточки.
// @Tags Admin
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Router /admin/santiere/export [get]
func (h *Handler) AdminExport(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.AdminExport")

	file, err := h.exporter.AdminExport(r.Context(), request.SantierFilter(r))
	if err != nil {
		log.Error("admin export failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	writeFile(w, file)
}

// UserExport godoc
// @Summary Выгрузка в Excel для пользователя
// @Description Текущие публичные фильтры, не более 1000 строк. Расходует месячный лимит выгрузок.
// @Tags Santiere
// @Produce  application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file
// @Failure 403 {object} response.ErrorResponse "Тариф не позволяет выгрузку или лимит исчерпан"
// @Router /santiere/export [get]
func (h *Handler) UserExport(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.santiere.UserExport")

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Send(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	f := request.SantierFilter(r)
	f.IsActive = nil
	file, err := h.exporter.UserExport(r.Context(), id.UserID, f)
	if err != nil {
		log.Warn("user export failed", slog.String("user_id", id.UserID), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	writeFile(w, file)
}

func writeFile(w http.ResponseWriter, file *export.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}
