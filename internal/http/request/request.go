// Package request содержит разбор входных данных HTTP-запросов, общий для обработчиков.
package request

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/datesantiere/internal/http/response"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const maxBodyBytes = 1 << 20

// Decode читает JSON тело в v и проверяет его валидатором. При ошибке ответ уже отправлен и возвращается false.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.Send(w, r, http.StatusBadRequest, "invalid request body")
		return false
	}

	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Error("validation failed", sl.Err(err))
			response.Send(w, r, http.StatusBadRequest, "invalid request body")
			return false
		}
		log.Warn("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return false
	}
	return true
}

// IntParam возвращает положительный числовой параметр пути.
func IntParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, models.ErrBadRequest
	}
	return id, nil
}

// Page возвращает номер страницы из параметра page, по умолчанию 1.
func Page(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// OptionalBool разбирает необязательный логический параметр запроса.
func OptionalBool(r *http.Request, name string) *bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}

// SantierFilter собирает фильтр каталога из параметров запроса.
func SantierFilter(r *http.Request) models.SantierFilter {
	q := r.URL.Query()
	return models.SantierFilter{
		Search:    strings.TrimSpace(q.Get("search")),
		Judet:     strings.TrimSpace(q.Get("judet")),
		Categorie: strings.TrimSpace(q.Get("categorie")),
		Status:    strings.TrimSpace(q.Get("status")),
		IsActive:  OptionalBool(r, "is_active"),
		Page:      Page(r),
	}
}

// ClientIP возвращает адрес клиента. При включённом middleware.RealIP это адрес из заголовков прокси.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
