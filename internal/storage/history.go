package storage

import (
	"context"
	"fmt"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// InsertHistory добавляет запись в журнал изменений. Записи журнала только добавляются.
func (s *Storage) InsertHistory(ctx context.Context, h models.SantierHistory) (int, error) {
	const op = "storage.InsertHistory"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO santier_history (santier_id, user_id, action, changes, created_at, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		h.SantierID, nullIfEmpty(h.UserID), h.Action, string(h.Changes), h.CreatedAt, nullIfEmpty(h.IPAddress),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// ListHistory возвращает журнал изменений записи, новые первыми.
func (s *Storage) ListHistory(ctx context.Context, santierID int) ([]models.SantierHistory, error) {
	const op = "storage.ListHistory"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT h.id, h.santier_id, COALESCE(h.user_id::text, ''), COALESCE(u.email, ''),
			h.action, h.changes::text, h.created_at, COALESCE(h.ip_address, '')
		FROM santier_history h
		LEFT JOIN users u ON u.id = h.user_id
		WHERE h.santier_id = $1
		ORDER BY h.created_at DESC, h.id DESC`, santierID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.SantierHistory{}
	for rows.Next() {
		var (
			h       models.SantierHistory
			changes string
		)
		if err := rows.Scan(&h.ID, &h.SantierID, &h.UserID, &h.UserEmail, &h.Action, &changes,
			&h.CreatedAt, &h.IPAddress); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		h.Changes = []byte(changes)
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
