// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{Status: StatusOK}
}

// Error возвращает Response с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// mapping сопоставляет ошибки сервисов с HTTP-статусами. Порядок важен: доменные ошибки проверяются первыми.
var mapping = []struct {
	err    error
	status int
}{
	{models.ErrPasswordMismatch, http.StatusBadRequest},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrEmailTaken, http.StatusConflict},
	{models.ErrInvalidResetToken, http.StatusBadRequest},
	{models.ErrExportNotAllowed, http.StatusForbidden},
	{models.ErrExportLimitReached, http.StatusForbidden},
	{models.ErrSavedSearchDisabled, http.StatusForbidden},
	{models.ErrSavedSearchLimit, http.StatusForbidden},
	{models.ErrAlreadySubscribed, http.StatusConflict},
	{models.ErrCaptchaFailed, http.StatusBadRequest},
	{models.ErrSelfDelete, http.StatusBadRequest},
	{models.ErrNoPriceForSantier, http.StatusNotFound},
	{models.ErrUnknownPlan, http.StatusBadRequest},
	{models.ErrScriptNotFound, http.StatusNotFound},
	{models.ErrInvalidScriptPath, http.StatusBadRequest},
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrConflict, http.StatusConflict},
	{models.ErrUnauthenticated, http.StatusUnauthorized},
	{models.ErrForbidden, http.StatusForbidden},
	{models.ErrBadRequest, http.StatusBadRequest},
}

// StatusFor возвращает HTTP-статус и текст ответа для ошибки сервиса.
// Неизвестные ошибки превращаются в 500 без раскрытия подробностей.
func StatusFor(err error) (int, string) {
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return m.status, m.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal server error"
}

// Fail отправляет ответ с ошибкой сервиса.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := StatusFor(err)
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}

// Send отправляет ответ с ошибкой и явным статусом.
func Send(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(msg))
}
