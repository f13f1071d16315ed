// Package users содержит управление пользователями из админки с проверкой прав администратора.
package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// PageSize размер страницы списка пользователей.
const PageSize = 25

// Repository методы хранилища пользователей.
type Repository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	AdminUpdateUser(ctx context.Context, userID string, u models.AdminUserUpdate) error
	DeleteUser(ctx context.Context, userID string) (int, error)
}

// Caller администратор, выполняющий операцию.
type Caller struct {
	ID        string
	AdminType string
}

func (c Caller) permissions() access.Permissions {
	return access.PermissionsFor(c.AdminType)
}

// Service управляет пользователями.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New создает Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// List возвращает страницу пользователей.
func (s *Service) List(ctx context.Context, caller Caller, f models.UserFilter) (models.Page[models.User], error) {
	const op = "users.List"
	if !caller.permissions().ManageUsers {
		return models.Page[models.User]{}, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	f.PageSize = PageSize
	if f.Page < 1 {
		f.Page = 1
	}
	items, total, err := s.repo.ListUsers(ctx, f)
	if err != nil {
		return models.Page[models.User]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.NewPage(items, total, f.Page, f.PageSize), nil
}

// Get возвращает пользователя по идентификатору.
func (s *Service) Get(ctx context.Context, caller Caller, id string) (*models.User, error) {
	const op = "users.Get"
	if !caller.permissions().ManageUsers {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// Update изменяет пользователя. Изменение администратора и смена типа администратора требуют ManageAdmins.
func (s *Service) Update(ctx context.Context, caller Caller, id string, upd models.AdminUserUpdate) (*models.User, error) {
	const op = "users.Update"
	perms := caller.permissions()
	if !perms.ManageUsers {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if !access.IsKnownAccountType(upd.AccountType) || !access.IsKnownAdminType(upd.AdminType) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}

	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if (access.IsAdmin(target.AdminType) || upd.AdminType != target.AdminType) && !perms.ManageAdmins {
		return nil, fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	if err := s.repo.AdminUpdateUser(ctx, id, upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user updated by admin",
		slog.String("user_id", id),
		slog.String("admin_id", caller.ID),
		slog.String("account_type", upd.AccountType),
		slog.String("admin_type", upd.AdminType))

	updated, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return updated, nil
}

// Delete удаляет пользователя. Удалить собственную учётную запись нельзя.
func (s *Service) Delete(ctx context.Context, caller Caller, id string) error {
	const op = "users.Delete"
	perms := caller.permissions()
	if !perms.ManageUsers {
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if id == caller.ID {
		return fmt.Errorf("%s: %w", op, models.ErrSelfDelete)
	}
	target, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if access.IsAdmin(target.AdminType) && !perms.ManageAdmins {
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}
	if _, err := s.repo.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("user deleted by admin", slog.String("user_id", id), slog.String("admin_id", caller.ID))
	return nil
}
