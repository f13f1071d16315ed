package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const noteColumns = `id, santier_id, user_id::text, nota, alarma, created_at, updated_at, is_active, notified_at`

func scanNote(row scanner) (*models.SantierNote, error) {
	var n models.SantierNote
	if err := row.Scan(&n.ID, &n.SantierID, &n.UserID, &n.Nota, &n.Alarma, &n.CreatedAt, &n.UpdatedAt,
		&n.IsActive, &n.NotifiedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

// CreateNote сохраняет заметку пользователя.
func (s *Storage) CreateNote(ctx context.Context, n models.SantierNote) (int, error) {
	const op = "storage.CreateNote"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO santier_notes (santier_id, user_id, nota, alarma, created_at, updated_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE) RETURNING id`,
		n.SantierID, n.UserID, n.Nota, n.Alarma, n.CreatedAt, n.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListNotes возвращает активные заметки пользователя к записи, новые первыми.
func (s *Storage) ListNotes(ctx context.Context, userID string, santierID int) ([]models.SantierNote, error) {
	const op = "storage.ListNotes"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+noteColumns+` FROM santier_notes
		WHERE user_id = $1 AND santier_id = $2 AND is_active
		ORDER BY created_at DESC, id DESC`, userID, santierID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.SantierNote{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeactivateNote скрывает заметку владельца. Чужая или отсутствующая заметка даёт models.ErrNotFound.
func (s *Storage) DeactivateNote(ctx context.Context, noteID int, userID string, now time.Time) error {
	const op = "storage.DeactivateNote"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE santier_notes SET is_active = FALSE, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND is_active`, now, noteID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListDueAlarms возвращает активные заметки с наступившим и ещё не отправленным напоминанием.
func (s *Storage) ListDueAlarms(ctx context.Context, now time.Time, limit int) ([]models.DueAlarm, error) {
	const op = "storage.ListDueAlarms"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT n.id, u.email, u.first_name, s.id, s.name, n.nota, n.alarma
		FROM santier_notes n
		JOIN users u ON u.id = n.user_id
		JOIN santiere s ON s.id = n.santier_id
		WHERE n.is_active AND n.notified_at IS NULL AND n.alarma IS NOT NULL AND n.alarma <= $1 AND u.is_active
		ORDER BY n.alarma
		LIMIT $2`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.DueAlarm
	for rows.Next() {
		var a models.DueAlarm
		if err := rows.Scan(&a.NoteID, &a.Email, &a.FirstName, &a.SantierID, &a.SantierName, &a.Nota, &a.Alarma); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkNoteNotified отмечает отправку напоминания. Возвращает false, если напоминание уже было отмечено.
func (s *Storage) MarkNoteNotified(ctx context.Context, noteID int, now time.Time) (bool, error) {
	const op = "storage.MarkNoteNotified"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE santier_notes SET notified_at = $1 WHERE id = $2 AND notified_at IS NULL`,
		now, noteID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddFavorite добавляет запись в избранное. Повторное добавление обновляет комментарий.
func (s *Storage) AddFavorite(ctx context.Context, f models.FavoriteSantier) (int, error) {
	const op = "storage.AddFavorite"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO favorite_santiere (user_id, santier_id, added_at, notes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, santier_id) DO UPDATE SET notes = COALESCE(EXCLUDED.notes, favorite_santiere.notes)
		RETURNING id`, f.UserID, f.SantierID, f.AddedAt, f.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// RemoveFavorite удаляет запись из избранного пользователя.
func (s *Storage) RemoveFavorite(ctx context.Context, userID string, santierID int) error {
	const op = "storage.RemoveFavorite"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM favorite_santiere WHERE user_id = $1 AND santier_id = $2`,
		userID, santierID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

// ListFavorites возвращает избранное пользователя вместе с данными записей.
func (s *Storage) ListFavorites(ctx context.Context, userID string) ([]models.FavoriteSantier, error) {
	const op = "storage.ListFavorites"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT f.id, f.user_id::text, f.santier_id, f.added_at, f.notes, `+
		prefixColumns("s.", santierColumns)+`
		FROM favorite_santiere f
		JOIN santiere s ON s.id = f.santier_id
		WHERE f.user_id = $1
		ORDER BY f.added_at DESC, f.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.FavoriteSantier{}
	for rows.Next() {
		var (
			f  models.FavoriteSantier
			st models.Santier
		)
		dest := append([]any{&f.ID, &f.UserID, &f.SantierID, &f.AddedAt, &f.Notes}, santierDest(&st)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		f.Santier = &st
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSavedSearches возвращает количество сохранённых поисков пользователя.
func (s *Storage) CountSavedSearches(ctx context.Context, userID string) (int, error) {
	const op = "storage.CountSavedSearches"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM saved_searches WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CreateSavedSearch сохраняет параметры поиска.
func (s *Storage) CreateSavedSearch(ctx context.Context, ss models.SavedSearch) (int, error) {
	const op = "storage.CreateSavedSearch"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO saved_searches (user_id, name, search_parameters, email_notifications, created_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		ss.UserID, ss.Name, string(ss.SearchParameters), ss.EmailNotifications, ss.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListSavedSearches возвращает сохранённые поиски пользователя.
func (s *Storage) ListSavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	const op = "storage.ListSavedSearches"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, user_id::text, name, search_parameters::text, email_notifications, created_at
		FROM saved_searches WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.SavedSearch{}
	for rows.Next() {
		var (
			ss     models.SavedSearch
			params string
		)
		if err := rows.Scan(&ss.ID, &ss.UserID, &ss.Name, &params, &ss.EmailNotifications, &ss.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ss.SearchParameters = []byte(params)
		result = append(result, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// DeleteSavedSearch удаляет сохранённый поиск владельца.
func (s *Storage) DeleteSavedSearch(ctx context.Context, id int, userID string) error {
	const op = "storage.DeleteSavedSearch"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}
