// Package auth реализует HTTP-обработчики регистрации, входа, восстановления пароля и профиля.
//
// Handler декодирует и валидирует JSON-запросы, делегирует операции сервису аутентификации
// и преобразует ошибки сервиса в HTTP-статусы через response.Fail.
package auth

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
	authservice "github.com/magabrotheeeer/datesantiere/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики аутентификации.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest, remoteIP string) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error)
	Profile(ctx context.Context, userID string) (*authservice.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*authservice.Profile, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error
}

// Handler обрабатывает HTTP-запросы аккаунта.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис аутентификации
	validate *validator.Validate // Валидатор для проверки входных данных
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

// Register godoc
// @Summary Регистрация пользователя
// @Description Создает аккаунт с бесплатным тарифом. Требует проверку капчи.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.RegisterRequest true "Данные регистрации"
// @Success 201 {object} response.Response "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Пароли не совпадают или капча не пройдена"
// @Failure 409 {object} response.ErrorResponse "E-mail уже зарегистрирован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Register")

	var req models.RegisterRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), req, request.ClientIP(r))
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("user registered", slog.String("user_id", user.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(user))
}

// Login godoc
// @Summary Авторизация пользователя
// @Description Аутентифицирует пользователя по e-mail и паролю. Возвращает JWT.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.LoginRequest true "Учетные данные пользователя"
// @Success 200 {object} response.Response "Успешная авторизация"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Login")

	var req models.LoginRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	token, user, err := h.service.Login(r.Context(), req)
	if err != nil {
		log.Warn("login failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("login success", slog.String("user_id", user.ID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
		"user":  user,
	}))
}

// ForgotPassword godoc
// @Summary Запрос на сброс пароля
// @Description Всегда отвечает успехом. Существующему пользователю отправляется письмо со ссылкой.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.ForgotPasswordRequest true "E-mail"
// @Success 200 {object} response.Response
// @Router /password/forgot [post]
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ForgotPassword")

	var req models.ForgotPasswordRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		log.Error("forgot password failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OK())
}

// ResetPassword godoc
// @Summary Сброс пароля
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body models.ResetPasswordRequest true "Токен и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Недействительный токен или пароли не совпадают"
// @Router /password/reset [post]
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.ResetPassword")

	var req models.ResetPasswordRequest
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req); err != nil {
		log.Warn("reset password failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("password reset")
	render.JSON(w, r, response.OK())
}

// Profile godoc
// @Summary Профиль текущего пользователя
// @Description Возвращает профиль, счётчики использования, лимиты тарифа и права администратора.
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse
// @Router /profile [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.Profile")

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Send(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	profile, err := h.service.Profile(r.Context(), id.UserID)
	if err != nil {
		log.Error("failed to load profile", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(profile))
}

// UpdateProfile godoc
// @Summary Изменение профиля
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.ProfileUpdate true "Имя, компания и CUI"
// @Success 200 {object} response.Response
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /profile [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.auth.UpdateProfile")

	id, ok := middlewarectx.IdentityFrom(r.Context())
	if !ok {
		response.Send(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.ProfileUpdate
	if !request.Decode(w, r, log, h.validate, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), id.UserID, req)
	if err != nil {
		log.Error("failed to update profile", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("profile updated", slog.String("user_id", id.UserID))
	render.JSON(w, r, response.OKWithData(profile))
}
