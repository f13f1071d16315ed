package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, COALESCE(company, ''), COALESCE(cui, ''),
	created_at, is_active, COALESCE(admin_type, ''), account_type, COALESCE(subscription_id, ''),
	subscription_end_date, COALESCE(subscription_plan, ''), monthly_search_limit, monthly_export_limit,
	current_month_searches, current_month_exports, last_reset_date`

func scanUser(row scanner) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Company, &u.CUI,
		&u.CreatedAt, &u.IsActive, &u.AdminType, &u.AccountType, &u.SubscriptionID,
		&u.SubscriptionEndDate, &u.SubscriptionPlan, &u.MonthlySearchLimit, &u.MonthlyExportLimit,
		&u.CurrentMonthSearches, &u.CurrentMonthExports, &u.LastResetDate)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser сохраняет нового пользователя. Повтор e-mail даёт models.ErrEmailTaken.
func (s *Storage) CreateUser(ctx context.Context, u models.User) error {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `INSERT INTO users (id, email, password_hash, first_name, last_name, company, cui, created_at,
				is_active, admin_type, account_type, monthly_search_limit, monthly_export_limit,
				current_month_searches, current_month_exports, last_reset_date)
			  VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			  ON CONFLICT (email) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, nullIfEmpty(u.Company), nullIfEmpty(u.CUI),
		u.CreatedAt, u.IsActive, nullIfEmpty(u.AdminType), u.AccountType, u.MonthlySearchLimit,
		u.MonthlyExportLimit, u.CurrentMonthSearches, u.CurrentMonthExports, u.LastResetDate)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrEmailTaken)
	}
	return nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// GetUserByEmail ищет пользователя по e-mail без учёта регистра.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// GetUserBySubscriptionID ищет пользователя по идентификатору подписки Stripe.
func (s *Storage) GetUserBySubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error) {
	const op = "storage.GetUserBySubscriptionID"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE subscription_id = $1`, subscriptionID))
	if err != nil {
		return nil, wrap(op, err)
	}
	return u, nil
}

// UpdateUsage записывает месячные счётчики и дату последнего сброса.
func (s *Storage) UpdateUsage(ctx context.Context, userID string, searches, exports int, lastReset time.Time) error {
	const op = "storage.UpdateUsage"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users
		SET current_month_searches = $1, current_month_exports = $2, last_reset_date = $3
		WHERE id = $4`, searches, exports, lastReset, userID)
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

// UpdateProfile обновляет личные данные пользователя.
func (s *Storage) UpdateProfile(ctx context.Context, userID string, p models.ProfileUpdate) error {
	const op = "storage.UpdateProfile"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users SET first_name = $1, last_name = $2, company = $3, cui = $4
		WHERE id = $5`, p.FirstName, p.LastName, nullIfEmpty(p.Company), nullIfEmpty(p.CUI), userID)
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

// UpdatePassword заменяет хеш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, userID, hash string) error {
	const op = "storage.UpdatePassword"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AdminUpdateUser сохраняет изменения пользователя из админки.
func (s *Storage) AdminUpdateUser(ctx context.Context, userID string, u models.AdminUserUpdate) error {
	const op = "storage.AdminUpdateUser"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users
		SET first_name = $1, last_name = $2, company = $3, cui = $4, is_active = $5, account_type = $6,
			admin_type = $7, monthly_search_limit = $8, monthly_export_limit = $9
		WHERE id = $10`,
		u.FirstName, u.LastName, nullIfEmpty(u.Company), nullIfEmpty(u.CUI), u.IsActive, u.AccountType,
		nullIfEmpty(u.AdminType), u.MonthlySearchLimit, u.MonthlyExportLimit, userID)
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

// UpdateAccountPlan переводит пользователя на тариф с новыми лимитами.
func (s *Storage) UpdateAccountPlan(ctx context.Context, userID string, plan models.AccountPlan) error {
	const op = "storage.UpdateAccountPlan"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE users
		SET account_type = $1, subscription_plan = $2, subscription_id = $3, subscription_end_date = $4,
			monthly_search_limit = $5, monthly_export_limit = $6
		WHERE id = $7`,
		plan.AccountType, nullIfEmpty(plan.SubscriptionPlan), nullIfEmpty(plan.SubscriptionID), plan.SubscriptionEndDate,
		plan.MonthlySearchLimit, plan.MonthlyExportLimit, userID)
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

// DeleteUser удаляет пользователя и возвращает количество удалённых строк.
func (s *Storage) DeleteUser(ctx context.Context, userID string) (int, error) {
	const op = "storage.DeleteUser"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected(op, res)
}

func applyUserFilter(b squirrel.SelectBuilder, f models.UserFilter) squirrel.SelectBuilder {
	if search := strings.TrimSpace(f.Search); search != "" {
		like := likePattern(strings.ToLower(search))
		b = b.Where(squirrel.Or{
			squirrel.Expr("lower(email) LIKE ?", like),
			squirrel.Expr("lower(first_name) LIKE ?", like),
			squirrel.Expr("lower(last_name) LIKE ?", like),
			squirrel.Expr("lower(COALESCE(company, '')) LIKE ?", like),
		})
	}
	if f.AccountType != "" {
		b = b.Where(squirrel.Eq{"account_type": f.AccountType})
	}
	switch f.AdminType {
	case "":
	case access.AdminNone:
		b = b.Where(squirrel.Or{squirrel.Eq{"admin_type": nil}, squirrel.Eq{"admin_type": ""}})
	default:
		b = b.Where(squirrel.Eq{"admin_type": f.AdminType})
	}
	if f.IsActive != nil {
		b = b.Where(squirrel.Eq{"is_active": *f.IsActive})
	}
	return b
}

// ListUsers возвращает страницу пользователей по фильтру, новые первыми.
func (s *Storage) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	const op = "storage.ListUsers"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}
	page, size := pageBounds(f.Page, f.PageSize, 25)

	countQuery, countArgs, err := applyUserFilter(psql.Select("COUNT(*)").From("users"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := applyUserFilter(psql.Select(userColumns).From("users"), f).
		OrderBy("created_at DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}
