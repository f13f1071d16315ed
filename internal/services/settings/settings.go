// Package settings управляет ключами внешних API, которые хранятся в базе.
package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Repository методы хранилища ключей.
type Repository interface {
	ListSettings(ctx context.Context) ([]models.APIKeySetting, error)
	GetSetting(ctx context.Context, id int) (*models.APIKeySetting, error)
	GetActiveSettingValue(ctx context.Context, keyName string) (string, error)
	CreateSetting(ctx context.Context, k models.APIKeySetting) (int, error)
	UpdateSetting(ctx context.Context, k models.APIKeySetting, now time.Time) error
	DeleteSetting(ctx context.Context, id int) error
}

// Service реализует CRUD ключей.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// New создает Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

func fromInput(in models.APIKeySettingInput, updatedBy string) models.APIKeySetting {
	return models.APIKeySetting{
		KeyName:     strings.TrimSpace(in.KeyName),
		Category:    in.Category,
		KeyValue:    in.KeyValue,
		Description: in.Description,
		IsActive:    in.IsActive,
		UpdatedBy:   &updatedBy,
	}
}

// List возвращает все ключи.
func (s *Service) List(ctx context.Context) ([]models.APIKeySetting, error) {
	list, err := s.repo.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("settings.List: %w", err)
	}
	return list, nil
}

// Get возвращает ключ по идентификатору.
func (s *Service) Get(ctx context.Context, id int) (*models.APIKeySetting, error) {
	k, err := s.repo.GetSetting(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("settings.Get: %w", err)
	}
	return k, nil
}

// Value возвращает значение активного ключа по имени.
func (s *Service) Value(ctx context.Context, keyName string) (string, error) {
	v, err := s.repo.GetActiveSettingValue(ctx, keyName)
	if err != nil {
		return "", fmt.Errorf("settings.Value: %w", err)
	}
	return v, nil
}

// Create добавляет ключ. Повторное имя ключа даёт models.ErrConflict.
func (s *Service) Create(ctx context.Context, in models.APIKeySettingInput, updatedBy string) (*models.APIKeySetting, error) {
	const op = "settings.Create"
	k := fromInput(in, updatedBy)
	if k.KeyName == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}
	k.CreatedAt = s.now().UTC()
	id, err := s.repo.CreateSetting(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	k.ID = id
	s.log.Info("api key created", slog.String("key_name", k.KeyName), slog.String("updated_by", updatedBy))
	return &k, nil
}

// Update изменяет ключ и фиксирует автора изменения.
func (s *Service) Update(ctx context.Context, id int, in models.APIKeySettingInput, updatedBy string) (*models.APIKeySetting, error) {
	const op = "settings.Update"
	existing, err := s.repo.GetSetting(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	k := fromInput(in, updatedBy)
	if k.KeyName == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}
	k.ID = id
	k.CreatedAt = existing.CreatedAt
	now := s.now().UTC()
	if err := s.repo.UpdateSetting(ctx, k, now); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	k.UpdatedAt = &now
	s.log.Info("api key updated", slog.Int("id", id), slog.String("updated_by", updatedBy))
	return &k, nil
}

// Delete удаляет ключ.
func (s *Service) Delete(ctx context.Context, id int) error {
	if err := s.repo.DeleteSetting(ctx, id); err != nil {
		return fmt.Errorf("settings.Delete: %w", err)
	}
	return nil
}
