package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const settingColumns = `id, key_name, category, key_value, description, is_active, created_at, updated_at, updated_by`

func scanSetting(row scanner) (*models.APIKeySetting, error) {
	var k models.APIKeySetting
	if err := row.Scan(&k.ID, &k.KeyName, &k.Category, &k.KeyValue, &k.Description, &k.IsActive, &k.CreatedAt,
		&k.UpdatedAt, &k.UpdatedBy); err != nil {
		return nil, err
	}
	return &k, nil
}

// ListSettings возвращает все ключи, сгруппированные по категории.
func (s *Storage) ListSettings(ctx context.Context) ([]models.APIKeySetting, error) {
	const op = "storage.ListSettings"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+settingColumns+` FROM api_key_settings
		ORDER BY category NULLS LAST, key_name`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.APIKeySetting{}
	for rows.Next() {
		k, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetSetting возвращает ключ по идентификатору.
func (s *Storage) GetSetting(ctx context.Context, id int) (*models.APIKeySetting, error) {
	const op = "storage.GetSetting"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	k, err := scanSetting(s.DB.QueryRowContext(ctx, `SELECT `+settingColumns+` FROM api_key_settings WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return k, nil
}

// GetActiveSettingValue возвращает значение активного ключа по имени.
func (s *Storage) GetActiveSettingValue(ctx context.Context, keyName string) (string, error) {
	const op = "storage.GetActiveSettingValue"
	if err := checkCtx(ctx, op); err != nil {
		return "", err
	}
	var v string
	err := s.DB.QueryRowContext(ctx, `SELECT key_value FROM api_key_settings WHERE key_name = $1 AND is_active
		ORDER BY id DESC LIMIT 1`, keyName).Scan(&v)
	if err != nil {
		return "", wrap(op, err)
	}
	return v, nil
}

// CreateSetting сохраняет новый ключ.
func (s *Storage) CreateSetting(ctx context.Context, k models.APIKeySetting) (int, error) {
	const op = "storage.CreateSetting"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO api_key_settings (key_name, category, key_value, description, is_active, created_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		k.KeyName, k.Category, k.KeyValue, k.Description, k.IsActive, k.CreatedAt, k.UpdatedBy).Scan(&id)
	if err != nil {
		return 0, wrapUnique(op, err)
	}
	return id, nil
}

// UpdateSetting изменяет ключ и фиксирует автора изменения.
func (s *Storage) UpdateSetting(ctx context.Context, k models.APIKeySetting, now time.Time) error {
	const op = "storage.UpdateSetting"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE api_key_settings SET key_name = $1, category = $2, key_value = $3,
			description = $4, is_active = $5, updated_at = $6, updated_by = $7
		WHERE id = $8`,
		k.KeyName, k.Category, k.KeyValue, k.Description, k.IsActive, now, k.UpdatedBy, k.ID)
	if err != nil {
		return wrapUnique(op, err)
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

// DeleteSetting удаляет ключ.
func (s *Storage) DeleteSetting(ctx context.Context, id int) error {
	const op = "storage.DeleteSetting"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM api_key_settings WHERE id = $1`, id)
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
