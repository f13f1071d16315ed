package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const contactColumns = `id, name, email, phone, company, cui, message, request_type, created_at, is_processed,
	processed_at, processed_by, response`

func scanContact(row scanner) (*models.ContactRequest, error) {
	var c models.ContactRequest
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.CUI, &c.Message, &c.RequestType,
		&c.CreatedAt, &c.IsProcessed, &c.ProcessedAt, &c.ProcessedBy, &c.Response); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContactRequest сохраняет обращение из формы обратной связи.
func (s *Storage) CreateContactRequest(ctx context.Context, c models.ContactRequest) (int, error) {
	const op = "storage.CreateContactRequest"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}
	var id int
	err := s.DB.QueryRowContext(ctx, `INSERT INTO contact_requests (name, email, phone, company, cui, message, request_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		c.Name, c.Email, c.Phone, c.Company, c.CUI, c.Message, c.RequestType, c.CreatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetContactRequest возвращает обращение по идентификатору.
func (s *Storage) GetContactRequest(ctx context.Context, id int) (*models.ContactRequest, error) {
	const op = "storage.GetContactRequest"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	c, err := scanContact(s.DB.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contact_requests WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return c, nil
}

// ListContactRequests возвращает страницу обращений. processed == nil выбирает все.
func (s *Storage) ListContactRequests(ctx context.Context, processed *bool, page, pageSize int) ([]models.ContactRequest, int, error) {
	const op = "storage.ListContactRequests"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}
	page, pageSize = pageBounds(page, pageSize, 25)

	apply := func(b squirrel.SelectBuilder) squirrel.SelectBuilder {
		b = b.From("contact_requests")
		if processed != nil {
			b = b.Where(squirrel.Eq{"is_processed": *processed})
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

	query, args, err := apply(psql.Select(contactColumns)).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(pageSize)).
		Offset(uint64((page - 1) * pageSize)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.ContactRequest
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// MarkContactProcessed сохраняет ответ администратора и закрывает обращение.
func (s *Storage) MarkContactProcessed(ctx context.Context, id int, processedBy, response string, now time.Time) error {
	const op = "storage.MarkContactProcessed"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE contact_requests
		SET is_processed = TRUE, processed_at = $1, processed_by = $2, response = $3
		WHERE id = $4`, now, processedBy, response, id)
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

const newsletterColumns = `id, email, name, subscribed_at, is_active, unsubscribe_token::text, unsubscribed_at`

// GetNewsletterByEmail возвращает подписку по e-mail без учёта регистра.
func (s *Storage) GetNewsletterByEmail(ctx context.Context, email string) (*models.Newsletter, error) {
	const op = "storage.GetNewsletterByEmail"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	var n models.Newsletter
	err := s.DB.QueryRowContext(ctx, `SELECT `+newsletterColumns+` FROM newsletters WHERE email = lower($1)`, email).
		Scan(&n.ID, &n.Email, &n.Name, &n.SubscribedAt, &n.IsActive, &n.UnsubscribeToken, &n.UnsubscribedAt)
	if err != nil {
		return nil, wrap(op, err)
	}
	return &n, nil
}

// UpsertNewsletter создаёт подписку или повторно активирует существующую.
func (s *Storage) UpsertNewsletter(ctx context.Context, n models.Newsletter) error {
	const op = "storage.UpsertNewsletter"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO newsletters (email, name, subscribed_at, is_active, unsubscribe_token)
		VALUES (lower($1), $2, $3, TRUE, $4)
		ON CONFLICT (email) DO UPDATE SET
			is_active = TRUE,
			subscribed_at = EXCLUDED.subscribed_at,
			unsubscribed_at = NULL,
			name = COALESCE(EXCLUDED.name, newsletters.name)`,
		n.Email, n.Name, n.SubscribedAt, n.UnsubscribeToken)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UnsubscribeNewsletter отключает подписку по токену отписки.
func (s *Storage) UnsubscribeNewsletter(ctx context.Context, token string, now time.Time) error {
	const op = "storage.UnsubscribeNewsletter"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE newsletters SET is_active = FALSE, unsubscribed_at = $1
		WHERE unsubscribe_token = $2 AND is_active`, now, token)
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
