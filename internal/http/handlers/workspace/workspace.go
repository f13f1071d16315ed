// Package workspace реализует HTTP-обработчики личного пространства пользователя:
// заметки к карточкам, избранное и сохранённые поиски.
package workspace

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

// Service описывает операции личного пространства.
type Service interface {
	AddNote(ctx context.Context, userID string, santierID int, in models.NoteInput) (*models.SantierNote, error)
	Notes(ctx context.Context, userID string, santierID int) ([]models.SantierNote, error)
	DeleteNote(ctx context.Context, userID string, noteID int) error
	AddFavorite(ctx context.Context, userID string, santierID int, in models.FavoriteInput) (*models.FavoriteSantier, error)
	RemoveFavorite(ctx context.Context, userID string, santierID int) error
	Favorites(ctx context.Context, userID string) ([]models.FavoriteSantier, error)
	SaveSearch(ctx context.Context, userID string, in models.SavedSearchInput) (*models.SavedSearch, error)
	SavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, userID string, id int) error
}

// Handler обрабатывает запросы личного пространства. Все маршруты требуют аутентификации.
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

// begin готовит логгер и достаёт пользователя. При отсутствии пользователя ответ уже отправлен.
func (h *Handler) begin(w http.ResponseWriter, r *http.Request, op string) (*slog.Logger, string, bool) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		log.Error("user not found in context")
		response.Send(w, r, http.StatusUnauthorized, "unauthorized")
		return log, "", false
	}
	return log, id.UserID, true
}

// AddNote godoc
// @Summary Добавить заметку к карточке
// @Tags Workspace
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param id path int true "Идентификатор карточки"
// @Param request body models.NoteInput true "Текст и напоминание"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse
// @Router /santiere/{id}/notes [post]
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.AddNote")
	if !ok {
		return
	}
	santierID, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	var in models.NoteInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}

	note, err := h.service.AddNote(r.Context(), userID, santierID, in)
	if err != nil {
		log.Warn("failed to add note", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(note))
}

// Notes возвращает заметки пользователя к карточке.
func (h *Handler) Notes(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.Notes")
	if !ok {
		return
	}
	santierID, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	notes, err := h.service.Notes(r.Context(), userID, santierID)
	if err != nil {
		log.Error("failed to list notes", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(notes))
}

// DeleteNote удаляет заметку пользователя.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.DeleteNote")
	if !ok {
		return
	}
	noteID, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err := h.service.DeleteNote(r.Context(), userID, noteID); err != nil {
		log.Warn("failed to delete note", slog.Int("note_id", noteID), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// AddFavorite добавляет карточку в избранное. Повторное добавление не создает дубликат.
func (h *Handler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.AddFavorite")
	if !ok {
		return
	}
	santierID, err := request.IntParam(r, "santierID")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	var in models.FavoriteInput
	if r.ContentLength != 0 {
		if !request.Decode(w, r, log, h.validate, &in) {
			return
		}
	}

	fav, err := h.service.AddFavorite(r.Context(), userID, santierID, in)
	if err != nil {
		log.Warn("failed to add favorite", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(fav))
}

// RemoveFavorite удаляет карточку из избранного.
func (h *Handler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.RemoveFavorite")
	if !ok {
		return
	}
	santierID, err := request.IntParam(r, "santierID")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err := h.service.RemoveFavorite(r.Context(), userID, santierID); err != nil {
		log.Warn("failed to remove favorite", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Favorites возвращает избранное пользователя.
func (h *Handler) Favorites(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.Favorites")
	if !ok {
		return
	}
	favs, err := h.service.Favorites(r.Context(), userID)
	if err != nil {
		log.Error("failed to list favorites", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(favs))
}

// SaveSearch godoc
// @Summary Сохранить поиск
// @Description Доступно тарифам с сохранёнными поисками, с учётом их максимального количества.
// @Tags Workspace
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.SavedSearchInput true "Название и параметры"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse
// @Router /searches [post]
func (h *Handler) SaveSearch(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.SaveSearch")
	if !ok {
		return
	}

	var in models.SavedSearchInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}

	saved, err := h.service.SaveSearch(r.Context(), userID, in)
	if err != nil {
		log.Warn("failed to save search", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(saved))
}

// SavedSearches возвращает сохранённые поиски пользователя.
func (h *Handler) SavedSearches(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.SavedSearches")
	if !ok {
		return
	}
	searches, err := h.service.SavedSearches(r.Context(), userID)
	if err != nil {
		log.Error("failed to list saved searches", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(searches))
}

// DeleteSavedSearch удаляет сохранённый поиск пользователя.
func (h *Handler) DeleteSavedSearch(w http.ResponseWriter, r *http.Request) {
	log, userID, ok := h.begin(w, r, "handlers.workspace.DeleteSavedSearch")
	if !ok {
		return
	}
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err := h.service.DeleteSavedSearch(r.Context(), userID, id); err != nil {
		log.Warn("failed to delete saved search", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}
