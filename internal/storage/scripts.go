package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// CreateScriptRun регистрирует запуск скрипта в статусе queued.
func (s *Storage) CreateScriptRun(ctx context.Context, scriptName, requestedBy string, now time.Time) (int, error) {
	const op = "storage.CreateScriptRun"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO script_runs (script_name, requested_by, status, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`, scriptName, requestedBy, models.ScriptQueued, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CompleteScriptRun сохраняет результат выполнения.
func (s *Storage) CompleteScriptRun(ctx context.Context, id int, result models.ScriptResult) error {
	const op = "storage.CompleteScriptRun"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	status := models.ScriptDone
	if !result.Success {
		status = models.ScriptFailed
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE script_runs SET status = $1, success = $2, output = $3, exit_code = $4,
			executed_at = $5, duration_ms = $6
		WHERE id = $7`,
		status, result.Success, result.Output, result.ExitCode, result.ExecutedAt, result.Duration.Milliseconds(), id)
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

// ListScriptRuns возвращает последние запуски скриптов.
func (s *Storage) ListScriptRuns(ctx context.Context, limit int) ([]models.ScriptRun, error) {
	const op = "storage.ListScriptRuns"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, script_name, requested_by, status, success, output, exit_code,
			executed_at, duration_ms, created_at
		FROM script_runs ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.ScriptRun{}
	for rows.Next() {
		var (
			r          models.ScriptRun
			success    sql.NullBool
			output     sql.NullString
			exitCode   sql.NullInt64
			executedAt sql.NullTime
			durationMs sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.ScriptName, &r.RequestedBy, &r.Status, &success, &output, &exitCode,
			&executedAt, &durationMs, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if executedAt.Valid {
			r.Result = &models.ScriptResult{
				Success:    success.Bool,
				Output:     output.String,
				ExitCode:   int(exitCode.Int64),
				ExecutedAt: executedAt.Time,
				Duration:   time.Duration(durationMs.Int64) * time.Millisecond,
			}
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
