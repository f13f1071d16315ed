// Package payments реализует HTTP-обработчики оплаты: покупку доступа к карточке,
// оформление подписки, webhook платёжного шлюза, отчёт по платежам и управление ценами.
package payments

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/datesantiere/internal/http/middlewarectx"
	"github.com/magabrotheeeer/datesantiere/internal/http/request"
	"github.com/magabrotheeeer/datesantiere/internal/http/response"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// maxWebhookBytes ограничивает размер тела webhook.
const maxWebhookBytes = 64 << 10

// SignatureHeader заголовок с подписью события Stripe.
const SignatureHeader = "Stripe-Signature"

// Service описывает операции оплаты.
type Service interface {
	PurchaseSantier(ctx context.Context, userID string, santierID int) (*models.CheckoutResult, error)
	CheckoutPlan(ctx context.Context, userID, plan string) (*models.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	Report(ctx context.Context, f models.ReportFilter) (models.Page[models.PaymentReportRow], error)
	ListPrices(ctx context.Context) ([]models.PaymentPrice, error)
	GetPrice(ctx context.Context, id int) (*models.PaymentPrice, error)
	CreatePrice(ctx context.Context, in models.PriceInput) (*models.PaymentPrice, error)
	UpdatePrice(ctx context.Context, id int, in models.PriceInput) (*models.PaymentPrice, error)
	DeletePrice(ctx context.Context, id int) error
}

// Handler обрабатывает запросы оплаты.
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

// Purchase godoc
// @Summary Купить доступ к карточке
// @Description Создает сессию оплаты для разовой покупки и возвращает ссылку на страницу оплаты.
// @Tags Payments
// @Produce  json
// @Security BearerAuth
// @Param id path int true "Идентификатор карточки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Карточка или цена не найдены"
// @Router /santiere/{id}/purchase [post]
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payments.Purchase")

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Send(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	santierID, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}

	res, err := h.service.PurchaseSantier(r.Context(), id.UserID, santierID)
	if err != nil {
		log.Error("failed to start purchase", slog.Int("santier_id", santierID), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("checkout session created", slog.String("session_id", res.SessionID))
	render.JSON(w, r, response.OKWithData(res))
}

// Checkout godoc
// @Summary Оформить подписку
// @Tags Payments
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.CheckoutRequest true "Тариф"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse
// @Router /subscriptions/checkout [post]
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payments.Checkout")

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Send(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CheckoutRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	res, err := h.service.CheckoutPlan(r.Context(), id.UserID, req.Plan)
	if err != nil {
		log.Error("failed to start subscription checkout", slog.String("plan", req.Plan), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(res))
}

// Webhook godoc
// @Summary Webhook платёжного шлюза
// @Description Принимает события Stripe. Подпись проверяется по заголовку Stripe-Signature.
// @Tags Payments
// @Accept  json
// @Produce  json
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверная подпись"
// @Router /payments/webhook [post]
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payments.Webhook")

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.Send(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(SignatureHeader)); err != nil {
		log.Error("webhook processing failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// Report godoc
// @Summary Отчёт по платежам
// @Description Платежи с e-mail пользователя, поиск по e-mail или идентификатору сессии, 25 на страницу.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param search query string false "E-mail или идентификатор сессии"
// @Param page query int false "Номер страницы"
// @Success 200 {object} response.Response
// @Router /admin/reports [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	f := models.ReportFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Page:   request.Page(r),
	}
	page, err := h.service.Report(r.Context(), f)
	if err != nil {
		h.logger(r, "handlers.payments.Report").Error("failed to build report", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(page))
}

// ListPrices возвращает все цены.
func (h *Handler) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.service.ListPrices(r.Context())
	if err != nil {
		h.logger(r, "handlers.payments.ListPrices").Error("failed to list prices", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(prices))
}

// GetPrice возвращает цену по идентификатору.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	price, err := h.service.GetPrice(r.Context(), id)
	if err != nil {
		h.logger(r, "handlers.payments.GetPrice").Warn("failed to load price", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(price))
}

// CreatePrice создает цену.
func (h *Handler) CreatePrice(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payments.CreatePrice")

	var in models.PriceInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}
	price, err := h.service.CreatePrice(r.Context(), in)
	if err != nil {
		log.Error("failed to create price", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(price))
}

// UpdatePrice изменяет цену.
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.payments.UpdatePrice")

	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	var in models.PriceInput
	if !request.Decode(w, r, log, h.validate, &in) {
		return
	}
	price, err := h.service.UpdatePrice(r.Context(), id, in)
	if err != nil {
		log.Warn("failed to update price", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(price))
}

// DeletePrice удаляет цену.
func (h *Handler) DeletePrice(w http.ResponseWriter, r *http.Request) {
	id, err := request.IntParam(r, "id")
	if err != nil {
		response.Fail(w, r, err)
		return
	}
	if err := h.service.DeletePrice(r.Context(), id); err != nil {
		h.logger(r, "handlers.payments.DeletePrice").Warn("failed to delete price", slog.Int("id", id), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}
