// Package scripts реализует HTTP-обработчики запуска служебных скриптов.
package scripts

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

// Service описывает операции со скриптами.
type Service interface {
	List() ([]models.ScriptInfo, error)
	Enqueue(ctx context.Context, name, requestedBy string) (*models.ScriptRun, error)
	Runs(ctx context.Context) ([]models.ScriptRun, error)
}

// Handler обрабатывает запросы скриптов.
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

// List возвращает скрипты, доступные для запуска.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List()
	if err != nil {
		h.logger(r, "handlers.scripts.List").Error("failed to list scripts", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(items))
}

// Run godoc
// @Summary Поставить скрипт в очередь
// @Description Скрипт выполняется отдельным процессом script-runner. Результат доступен в списке запусков.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.RunScriptRequest true "Имя файла"
// @Success 202 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Недопустимое имя файла"
// @Failure 404 {object} response.ErrorResponse "Скрипт не найден"
// @Router /admin/scripts/run [post]
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.scripts.Run")

	var req models.RunScriptRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	id, _ := middlewarectx.IdentityFrom(r.Context())
	run, err := h.service.Enqueue(r.Context(), req.Name, id.Email)
	if err != nil {
		log.Warn("failed to enqueue script", slog.String("script", req.Name), sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("script queued", slog.Int("run_id", run.ID), slog.String("script", run.ScriptName))
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response.OKWithData(run))
}

// Runs возвращает последние запуски.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.service.Runs(r.Context())
	if err != nil {
		h.logger(r, "handlers.scripts.Runs").Error("failed to list script runs", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(runs))
}
