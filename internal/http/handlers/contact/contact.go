// Package contact реализует HTTP-обработчики формы обратной связи и подписки на рассылку,
// а также разбор обращений в админке.
package contact

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

// Service описывает операции обратной связи.
type Service interface {
	Submit(ctx context.Context, in models.ContactInput, remoteIP string) (*models.ContactRequest, error)
	List(ctx context.Context, processed *bool, page int) (models.Page[models.ContactRequest], error)
	Process(ctx context.Context, id int, processedBy, response string) error
	Subscribe(ctx context.Context, in models.NewsletterInput) error
	Unsubscribe(ctx context.Context, token string) error
}

// UnsubscribeRequest токен отписки из письма рассылки.
type UnsubscribeRequest struct {
	Token string `json:"token" validate:"required"`
}

// Handler обрабатывает запросы обратной связи.
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

// Submit godoc
// @Summary Отправить обращение
// @Description Форма обратной связи с проверкой капчи.
// @Tags Public
// @Accept  json
// @Produce  json
// @Param request body models.ContactInput true "Обращение"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Капча не пройдена"
// @Failure 422 {object} response.ErrorResponse
// @Router /contact [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.contact.Submit")

	var in models.ContactInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}

	c, err := h.service.Submit(r.Context(), in, request.ClientIP(r))
	if err != nil {
		log.Warn("failed to submit contact request", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("contact request stored", slog.Int("id", c.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OK())
}

// Subscribe godoc
// @Summary Подписка на рассылку
// @Tags Public
// @Accept  json
// @Produce  json
// @Param request body models.NewsletterInput true "E-mail и имя"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Пустой e-mail"
// @Failure 409 {object} response.ErrorResponse "Уже подписан"
// @Router /newsletter/subscribe [post]
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.contact.Subscribe")

	var in models.NewsletterInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}
	if err := h.service.Subscribe(r.Context(), in); err != nil {
		log.Warn("failed to subscribe", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Unsubscribe отключает подписку по токену из тела запроса или параметра token.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.contact.Unsubscribe")

	req := UnsubscribeRequest{Token: r.URL.Query().Get("token")}
	if req.Token == "" && !request.Decode(w, r, log, h.validate, &req) {
		return
	}
	if err := h.service.Unsubscribe(r.Context(), req.Token); err != nil {
		log.Warn("failed to unsubscribe", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// List godoc
// @Summary Обращения
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param processed query bool false "Фильтр по обработке"
// @Param page query int false "Номер страницы"
// @Success 200 {object} response.Response
// @Router /admin/contacts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), request.OptionalBool(r, "processed"), request.Page(r))
	if err != nil {
		h.logger(r, "handlers.contact.List").Error("failed to list contact requests", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(page))
}

// Process отмечает обращение обработанным и отправляет ответ автору.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.contact.Process")

	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	var in models.ContactProcessInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}

	admin, _ := middlewarectx.IdentityFrom(r.Context())
	if err := h.service.Process(r.Context(), id, admin.Email, in.Response); err != nil {
		log.Warn("failed to process contact request", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}
