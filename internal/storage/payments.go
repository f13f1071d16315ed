package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// HasActivePurchase проверяет, есть ли у пользователя действующая покупка доступа к записи.
func (s *Storage) HasActivePurchase(ctx context.Context, userID string, santierID int, now time.Time) (bool, error) {
	const op = "storage.HasActivePurchase"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
			SELECT 1 FROM purchased_santiere
			WHERE user_id = $1 AND santier_id = $2 AND (expires_at IS NULL OR expires_at > $3)
		)`, userID, santierID, now).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CreatePurchase сохраняет покупку доступа к записи. Повторная покупка с той же сессией Stripe
// не создаёт новую строку и возвращает идентификатор уже сохранённой.
func (s *Storage) CreatePurchase(ctx context.Context, p models.PurchasedSantier) (int, error) {
	const op = "storage.CreatePurchase"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO purchased_santiere (user_id, santier_id, purchased_at, expires_at, stripe_session_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (stripe_session_id) DO NOTHING
		RETURNING id`, p.UserID, p.SantierID, p.PurchasedAt, p.ExpiresAt, nullIfEmpty(p.SessionID)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.DB.QueryRowContext(ctx, `SELECT id FROM purchased_santiere WHERE stripe_session_id = $1`,
			p.SessionID).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CreatePaymentRecord сохраняет платёж, созданный при открытии сессии оплаты.
func (s *Storage) CreatePaymentRecord(ctx context.Context, r models.PaymentRecord) (int, error) {
	const op = "storage.CreatePaymentRecord"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO payment_records (user_id, santier_id, price_id, plan, amount, currency,
			stripe_session_id, stripe_payment_intent_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`,
		nullIfEmpty(r.UserID), r.SantierID, r.PriceID, nullIfEmpty(r.Plan), r.Amount, r.Currency, r.StripeSessionID,
		nullIfEmpty(r.StripePaymentIntentID), r.Status, r.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

const paymentColumns = `p.id, COALESCE(p.user_id::text, ''), p.santier_id, p.price_id, COALESCE(p.plan, ''), p.amount,
	p.currency, p.stripe_session_id, COALESCE(p.stripe_payment_intent_id, ''), p.status, p.created_at`

func paymentDest(r *models.PaymentRecord) []any {
	return []any{&r.ID, &r.UserID, &r.SantierID, &r.PriceID, &r.Plan, &r.Amount, &r.Currency,
		&r.StripeSessionID, &r.StripePaymentIntentID, &r.Status, &r.CreatedAt}
}

// GetPaymentBySession возвращает платёж по идентификатору сессии Stripe.
func (s *Storage) GetPaymentBySession(ctx context.Context, sessionID string) (*models.PaymentRecord, error) {
	const op = "storage.GetPaymentBySession"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var r models.PaymentRecord
	err := s.DB.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payment_records p WHERE p.stripe_session_id = $1`,
		sessionID).Scan(paymentDest(&r)...)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &r, nil
}

// MarkPaymentPaid переводит ожидающий платёж в оплаченные. Возвращает false, если платёж уже обработан.
func (s *Storage) MarkPaymentPaid(ctx context.Context, sessionID, paymentIntentID string) (bool, error) {
	const op = "storage.MarkPaymentPaid"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE payment_records SET status = $1, stripe_payment_intent_id = $2
		WHERE stripe_session_id = $3 AND status = $4`,
		models.PaymentPaid, nullIfEmpty(paymentIntentID), sessionID, models.PaymentPending)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkPaymentExpired закрывает ожидающий платёж по истёкшей сессии.
func (s *Storage) MarkPaymentExpired(ctx context.Context, sessionID string) error {
	const op = "storage.MarkPaymentExpired"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `UPDATE payment_records SET status = $1 WHERE stripe_session_id = $2 AND status = $3`,
		models.PaymentExpired, sessionID, models.PaymentPending)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListPaymentReport возвращает страницу отчёта по платежам, новые первыми.
func (s *Storage) ListPaymentReport(ctx context.Context, f models.ReportFilter) ([]models.PaymentReportRow, int, error) {
	const op = "storage.ListPaymentReport"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}
	page, size := pageBounds(f.Page, f.PageSize, 25)

	apply := func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		b = b.From("payment_records p").LeftJoin("users u ON u.id = p.user_id")
		if f.Search != "" {
			like := likePattern(f.Search)
			b = b.Where(squirrel.Or{
				squirrel.Expr("u.email ILIKE ?", like),
				squirrel.Expr("p.stripe_session_id ILIKE ?", like),
				squirrel.Expr("p.plan ILIKE ?", like),
			})
		}
		return b
	}

	countQuery, countArgs, err := apply(psql.Select("COUNT(*)")).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := apply(psql.Select(paymentColumns, "COALESCE(u.email, '')")).
		OrderBy("p.created_at DESC", "p.id DESC").
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

	var result []models.PaymentReportRow
	for rows.Next() {
		var row models.PaymentReportRow
		if err := rows.Scan(append(paymentDest(&row.PaymentRecord), &row.UserEmail)...); err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

const priceColumns = `id, name, amount_cents, currency, billing_interval, is_active, is_for_santier, created_at`

func scanPrice(row scanner) (*models.PaymentPrice, error) {
	var p models.PaymentPrice
	if err := row.Scan(&p.ID, &p.Name, &p.AmountCents, &p.Currency, &p.BillingInterval, &p.IsActive,
		&p.IsForSantier, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePrice сохраняет новую цену.
func (s *Storage) CreatePrice(ctx context.Context, p models.PaymentPrice) (int, error) {
	const op = "storage.CreatePrice"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO payment_prices (name, amount_cents, currency, billing_interval,
			is_active, is_for_santier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Name, p.AmountCents, p.Currency, p.BillingInterval, p.IsActive, p.IsForSantier, p.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdatePrice изменяет существующую цену.
func (s *Storage) UpdatePrice(ctx context.Context, p models.PaymentPrice) error {
	const op = "storage.UpdatePrice"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE payment_prices SET name = $1, amount_cents = $2, currency = $3,
			billing_interval = $4, is_active = $5, is_for_santier = $6
		WHERE id = $7`,
		p.Name, p.AmountCents, p.Currency, p.BillingInterval, p.IsActive, p.IsForSantier, p.ID)
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

// DeletePrice удаляет цену.
func (s *Storage) DeletePrice(ctx context.Context, id int) error {
	const op = "storage.DeletePrice"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM payment_prices WHERE id = $1`, id)
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

// GetPrice возвращает цену по идентификатору.
func (s *Storage) GetPrice(ctx context.Context, id int) (*models.PaymentPrice, error) {
	const op = "storage.GetPrice"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	p, err := scanPrice(s.DB.QueryRowContext(ctx, `SELECT `+priceColumns+` FROM payment_prices WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}

// ListPrices возвращает все цены.
func (s *Storage) ListPrices(ctx context.Context) ([]models.PaymentPrice, error) {
	const op = "storage.ListPrices"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT `+priceColumns+` FROM payment_prices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []models.PaymentPrice{}
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// GetActiveSantierPrice возвращает действующую цену разовой покупки доступа к записи.
func (s *Storage) GetActiveSantierPrice(ctx context.Context) (*models.PaymentPrice, error) {
	const op = "storage.GetActiveSantierPrice"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	p, err := scanPrice(s.DB.QueryRowContext(ctx, `SELECT `+priceColumns+` FROM payment_prices
		WHERE is_active AND is_for_santier ORDER BY created_at DESC, id DESC LIMIT 1`))
	if err != nil {
		return nil, wrap(op, err)
	}
	return p, nil
}
