// Package workspace содержит личное пространство пользователя: заметки с напоминаниями, избранное и сохранённые поиски.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// Repository методы хранилища личного пространства.
type Repository interface {
	CreateNote(ctx context.Context, n models.SantierNote) (int, error)
	ListNotes(ctx context.Context, userID string, santierID int) ([]models.SantierNote, error)
	DeactivateNote(ctx context.Context, noteID int, userID string, now time.Time) error

	AddFavorite(ctx context.Context, f models.FavoriteSantier) (int, error)
	RemoveFavorite(ctx context.Context, userID string, santierID int) error
	ListFavorites(ctx context.Context, userID string) ([]models.FavoriteSantier, error)

	CountSavedSearches(ctx context.Context, userID string) (int, error)
	CreateSavedSearch(ctx context.Context, ss models.SavedSearch) (int, error)
	ListSavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, id int, userID string) error
}

// SantierRepository проверяет, что запись существует и активна.
type SantierRepository interface {
	GetSantier(ctx context.Context, id int) (*models.Santier, error)
}

// UserRepository загружает тариф пользователя.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Service реализует операции личного пространства.
type Service struct {
	repo     Repository
	santiere SantierRepository
	users    UserRepository
	log      *slog.Logger
	now      func() time.Time
}

// New создает Service.
func New(repo Repository, santiere SantierRepository, users UserRepository, log *slog.Logger) *Service {
	return &Service{repo: repo, santiere: santiere, users: users, log: log, now: time.Now}
}

func (s *Service) activeSantier(ctx context.Context, id int) error {
	st, err := s.santiere.GetSantier(ctx, id)
	if err != nil {
		return err
	}
	if !st.IsActive {
		return models.ErrNotFound
	}
	return nil
}

// AddNote добавляет заметку к записи.
func (s *Service) AddNote(ctx context.Context, userID string, santierID int, in models.NoteInput) (*models.SantierNote, error) {
	const op = "workspace.AddNote"
	text := strings.TrimSpace(in.Nota)
	if text == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}
	if err := s.activeSantier(ctx, santierID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := s.now().UTC()
	note := models.SantierNote{
		SantierID: santierID,
		UserID:    userID,
		Nota:      text,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	if in.Alarma != nil {
		alarm := in.Alarma.UTC()
		note.Alarma = &alarm
	}
	id, err := s.repo.CreateNote(ctx, note)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	note.ID = id
	return &note, nil
}

// Notes возвращает активные заметки пользователя к записи.
func (s *Service) Notes(ctx context.Context, userID string, santierID int) ([]models.SantierNote, error) {
	notes, err := s.repo.ListNotes(ctx, userID, santierID)
	if err != nil {
		return nil, fmt.Errorf("workspace.Notes: %w", err)
	}
	return notes, nil
}

// DeleteNote скрывает заметку. Чужая заметка считается ненайденной.
func (s *Service) DeleteNote(ctx context.Context, userID string, noteID int) error {
	if err := s.repo.DeactivateNote(ctx, noteID, userID, s.now().UTC()); err != nil {
		return fmt.Errorf("workspace.DeleteNote: %w", err)
	}
	return nil
}

// AddFavorite добавляет запись в избранное. Повторный вызов не создаёт дубликат.
func (s *Service) AddFavorite(ctx context.Context, userID string, santierID int, in models.FavoriteInput) (*models.FavoriteSantier, error) {
	const op = "workspace.AddFavorite"
	if err := s.activeSantier(ctx, santierID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fav := models.FavoriteSantier{
		UserID:    userID,
		SantierID: santierID,
		AddedAt:   s.now().UTC(),
		Notes:     in.Notes,
	}
	id, err := s.repo.AddFavorite(ctx, fav)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	fav.ID = id
	return &fav, nil
}

// RemoveFavorite убирает запись из избранного.
func (s *Service) RemoveFavorite(ctx context.Context, userID string, santierID int) error {
	if err := s.repo.RemoveFavorite(ctx, userID, santierID); err != nil {
		return fmt.Errorf("workspace.RemoveFavorite: %w", err)
	}
	return nil
}

// Favorites возвращает избранное пользователя.
func (s *Service) Favorites(ctx context.Context, userID string) ([]models.FavoriteSantier, error) {
	favs, err := s.repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("workspace.Favorites: %w", err)
	}
	return favs, nil
}

// SaveSearch сохраняет параметры поиска с учётом лимита тарифа.
func (s *Service) SaveSearch(ctx context.Context, userID string, in models.SavedSearchInput) (*models.SavedSearch, error) {
	const op = "workspace.SaveSearch"
	name := strings.TrimSpace(in.Name)
	if name == "" || !json.Valid(in.SearchParameters) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	limits := access.LimitsFor(user.AccountType)
	if !limits.CanSaveSearches {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSavedSearchDisabled)
	}
	if limits.MaxSavedSearches > 0 {
		count, err := s.repo.CountSavedSearches(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if count >= limits.MaxSavedSearches {
			return nil, fmt.Errorf("%s: %w", op, models.ErrSavedSearchLimit)
		}
	}

	ss := models.SavedSearch{
		UserID:             userID,
		Name:               name,
		SearchParameters:   in.SearchParameters,
		EmailNotifications: in.EmailNotifications,
		CreatedAt:          s.now().UTC(),
	}
	id, err := s.repo.CreateSavedSearch(ctx, ss)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ss.ID = id
	s.log.Info("search saved", slog.String("user_id", userID), slog.Int("id", id))
	return &ss, nil
}

// SavedSearches возвращает сохранённые поиски пользователя.
func (s *Service) SavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	list, err := s.repo.ListSavedSearches(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("workspace.SavedSearches: %w", err)
	}
	return list, nil
}

// DeleteSavedSearch удаляет сохранённый поиск пользователя.
func (s *Service) DeleteSavedSearch(ctx context.Context, userID string, id int) error {
	if err := s.repo.DeleteSavedSearch(ctx, id, userID); err != nil {
		return fmt.Errorf("workspace.DeleteSavedSearch: %w", err)
	}
	return nil
}
