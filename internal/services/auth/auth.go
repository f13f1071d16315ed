// Package auth содержит регистрацию, вход, профиль пользователя, сброс пароля и создание суперадминистратора.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/lib/jwt"
	"github.com/magabrotheeeer/datesantiere/internal/lib/password"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/rabbitmq"
)

const resetTokenTTL = time.Hour

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID string, p models.ProfileUpdate) error
	UpdatePassword(ctx context.Context, userID, hash string) error
	AdminUpdateUser(ctx context.Context, userID string, u models.AdminUserUpdate) error
}

// CaptchaVerifier проверяет токен капчи.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Publisher публикует уведомления в очередь.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Cache хранит токены сброса пароля.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Profile данные пользователя вместе с лимитами тарифа и правами администратора.
type Profile struct {
	User        models.User          `json:"user"`
	Limits      access.AccountLimits `json:"limits"`
	Permissions access.Permissions   `json:"permissions"`
}

// Service отвечает за регистрацию, авторизацию и профиль.
type Service struct {
	users     UserRepository
	jwtMaker  jwt.Maker
	captcha   CaptchaVerifier
	publisher Publisher
	cache     Cache
	log       *slog.Logger
	now       func() time.Time
}

// New создает Service.
func New(users UserRepository, jwtMaker jwt.Maker, captcha CaptchaVerifier, publisher Publisher, cache Cache, log *slog.Logger) *Service {
	return &Service{
		users:     users,
		jwtMaker:  jwtMaker,
		captcha:   captcha,
		publisher: publisher,
		cache:     cache,
		log:       log,
		now:       time.Now,
	}
}

// Register создает пользователя с бесплатным тарифом после проверки капчи.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest, remoteIP string) (*models.User, error) {
	const op = "auth.Register"
	if req.Password != req.ConfirmPassword {
		return nil, fmt.Errorf("%s: %w", op, models.ErrPasswordMismatch)
	}
	if err := s.captcha.Verify(ctx, req.CaptchaToken, remoteIP); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	limits := access.LimitsFor(access.AccountFree)
	user := models.User{
		ID:                 uuid.NewString(),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:       hashed,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Company:            req.Company,
		CUI:                req.CUI,
		CreatedAt:          now,
		IsActive:           true,
		AccountType:        access.AccountFree,
		MonthlySearchLimit: limits.SearchLimit,
		MonthlyExportLimit: limits.ExportLimit,
		LastResetDate:      now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("registered user", slog.String("user_id", user.ID))
	return &user, nil
}

// Login проверяет пароль и выдает JWT. Неизвестный, неактивный пользователь и неверный пароль неразличимы.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	const op = "auth.Login"
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}
	if !user.IsActive {
		return "", nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Email, user.AdminType)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, user, nil
}

// Profile возвращает профиль пользователя.
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	const op = "auth.Profile"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Profile{
		User:        *user,
		Limits:      access.LimitsFor(user.AccountType),
		Permissions: access.PermissionsFor(user.AdminType),
	}, nil
}

// UpdateProfile сохраняет личные данные и возвращает обновлённый профиль.
func (s *Service) UpdateProfile(ctx context.Context, userID string, upd models.ProfileUpdate) (*Profile, error) {
	const op = "auth.UpdateProfile"
	if err := s.users.UpdateProfile(ctx, userID, upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.Profile(ctx, userID)
}

func resetKey(email string) string {
	return "password_reset:" + strings.ToLower(strings.TrimSpace(email))
}

// ForgotPassword создает токен сброса и ставит письмо в очередь.
// Результат не зависит от того, существует ли пользователь.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.log.Info("password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !user.IsActive {
		return nil
	}

	token := uuid.NewString()
	if err := s.cache.Set(resetKey(user.Email), token, resetTokenTTL); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := models.PasswordResetMessage{Email: user.Email, FirstName: user.FirstName, Token: token}
	if err := s.publisher.Publish(rabbitmq.KeyPasswordReset, msg); err != nil {
		s.log.Error("failed to publish password reset", slog.String("user_id", user.ID), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword меняет пароль по одноразовому токену.
func (s *Service) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	const op = "auth.ResetPassword"
	if req.Password != req.ConfirmPassword {
		return fmt.Errorf("%s: %w", op, models.ErrPasswordMismatch)
	}

	key := resetKey(req.Email)
	var stored string
	found, err := s.cache.Get(key, &stored)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found || subtle.ConstantTimeCompare([]byte(stored), []byte(req.Token)) != 1 {
		return fmt.Errorf("%s: %w", op, models.ErrInvalidResetToken)
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, models.ErrInvalidResetToken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	hashed, err := password.GetHash(req.Password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hashed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
	s.log.Info("password reset", slog.String("user_id", user.ID))
	return nil
}

// SeedSuperAdmin создает суперадминистратора или восстанавливает его права и тариф.
func (s *Service) SeedSuperAdmin(ctx context.Context, email, rawPassword string) error {
	const op = "auth.SeedSuperAdmin"
	if email == "" {
		return nil
	}
	limits := access.LimitsFor(access.AccountEnterprise)

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		upd := models.AdminUserUpdate{
			FirstName:          existing.FirstName,
			LastName:           existing.LastName,
			Company:            existing.Company,
			CUI:                existing.CUI,
			IsActive:           true,
			AccountType:        access.AccountEnterprise,
			AdminType:          access.AdminSuper,
			MonthlySearchLimit: limits.SearchLimit,
			MonthlyExportLimit: limits.ExportLimit,
		}
		if err := s.users.AdminUpdateUser(ctx, existing.ID, upd); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case !errors.Is(err, models.ErrNotFound):
		return fmt.Errorf("%s: %w", op, err)
	}

	if rawPassword == "" {
		return fmt.Errorf("%s: super admin password is not configured", op)
	}
	hashed, err := password.GetHash(rawPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	now := s.now().UTC()
	user := models.User{
		ID:                 uuid.NewString(),
		Email:              strings.ToLower(email),
		PasswordHash:       hashed,
		FirstName:          "Super",
		LastName:           "Admin",
		CreatedAt:          now,
		IsActive:           true,
		AdminType:          access.AdminSuper,
		AccountType:        access.AccountEnterprise,
		MonthlySearchLimit: limits.SearchLimit,
		MonthlyExportLimit: limits.ExportLimit,
		LastResetDate:      now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("super admin created", slog.String("user_id", user.ID))
	return nil
}
