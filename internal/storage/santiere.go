package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

const santierColumns = `id, name, description, judet, localitate, adresa, categorie, subcategorie, beneficiar,
	beneficiar_cui, contact_persoana, contact_telefon, contact_email, valoare_estimata, status, data_incepere,
	data_finalizare, proiectant, constructor, observatii, created_at, updated_at, is_active, is_featured,
	latitude, longitude`

// santierDistinctColumns колонки, по которым строятся списки значений для фильтров.
var santierDistinctColumns = map[string]bool{
	"judet":     true,
	"categorie": true,
	"status":    true,
}

func santierDest(s *models.Santier) []any {
	return []any{&s.ID, &s.Name, &s.Description, &s.Judet, &s.Localitate, &s.Adresa, &s.Categorie,
		&s.Subcategorie, &s.Beneficiar, &s.BeneficiarCUI, &s.ContactPersoana, &s.ContactTelefon,
		&s.ContactEmail, &s.ValoareEstimata, &s.Status, &s.DataIncepere, &s.DataFinalizare, &s.Proiectant,
		&s.Constructor, &s.Observatii, &s.CreatedAt, &s.UpdatedAt, &s.IsActive, &s.IsFeatured,
		&s.Latitude, &s.Longitude}
}

func scanSantier(row scanner) (*models.Santier, error) {
	var s models.Santier
	if err := row.Scan(santierDest(&s)...); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSantier сохраняет новую запись и возвращает её идентификатор.
func (s *Storage) CreateSantier(ctx context.Context, st models.Santier) (int, error) {
	const op = "storage.CreateSantier"
	if err := checkCtx(ctx, op); err != nil {
		return 0, err
	}

	query := `INSERT INTO santiere (name, description, judet, localitate, adresa, categorie, subcategorie,
				beneficiar, beneficiar_cui, contact_persoana, contact_telefon, contact_email, valoare_estimata,
				status, data_incepere, data_finalizare, proiectant, constructor, observatii, created_at,
				updated_at, is_active, is_featured, latitude, longitude)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
				$20, $21, $22, $23, $24, $25)
			  RETURNING id`
	var id int
	err := s.DB.QueryRowContext(ctx, query,
		st.Name, st.Description, st.Judet, st.Localitate, st.Adresa, st.Categorie, st.Subcategorie,
		st.Beneficiar, st.BeneficiarCUI, st.ContactPersoana, st.ContactTelefon, st.ContactEmail,
		st.ValoareEstimata, st.Status, st.DataIncepere, st.DataFinalizare, st.Proiectant, st.Constructor,
		st.Observatii, st.CreatedAt, st.UpdatedAt, st.IsActive, st.IsFeatured, st.Latitude, st.Longitude,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// GetSantier возвращает запись по идентификатору независимо от активности.
func (s *Storage) GetSantier(ctx context.Context, id int) (*models.Santier, error) {
	const op = "storage.GetSantier"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	st, err := scanSantier(s.DB.QueryRowContext(ctx, `SELECT `+santierColumns+` FROM santiere WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(op, err)
	}
	return st, nil
}

// UpdateSantier сохраняет изменения, если запись не менялась после expectedUpdatedAt.
// Отсутствие записи даёт models.ErrNotFound, конкурентное изменение даёт models.ErrConflict.
func (s *Storage) UpdateSantier(ctx context.Context, st models.Santier, expectedUpdatedAt time.Time) error {
	const op = "storage.UpdateSantier"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}

	query := `UPDATE santiere SET name = $1, description = $2, judet = $3, localitate = $4, adresa = $5,
				categorie = $6, subcategorie = $7, beneficiar = $8, beneficiar_cui = $9, contact_persoana = $10,
				contact_telefon = $11, contact_email = $12, valoare_estimata = $13, status = $14,
				data_incepere = $15, data_finalizare = $16, proiectant = $17, constructor = $18,
				observatii = $19, updated_at = $20, is_active = $21, is_featured = $22, latitude = $23,
				longitude = $24
			  WHERE id = $25 AND updated_at = $26`
	res, err := s.DB.ExecContext(ctx, query,
		st.Name, st.Description, st.Judet, st.Localitate, st.Adresa, st.Categorie, st.Subcategorie,
		st.Beneficiar, st.BeneficiarCUI, st.ContactPersoana, st.ContactTelefon, st.ContactEmail,
		st.ValoareEstimata, st.Status, st.DataIncepere, st.DataFinalizare, st.Proiectant, st.Constructor,
		st.Observatii, st.UpdatedAt, st.IsActive, st.IsFeatured, st.Latitude, st.Longitude,
		st.ID, expectedUpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := rowsAffected(op, res)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM santiere WHERE id = $1)`, st.ID).
		Scan(&exists); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, models.ErrConflict)
}

// DeactivateSantier помечает запись неактивной. Строки не удаляются.
func (s *Storage) DeactivateSantier(ctx context.Context, id int, now time.Time) error {
	const op = "storage.DeactivateSantier"
	if err := checkCtx(ctx, op); err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `UPDATE santiere SET is_active = FALSE, updated_at = $1 WHERE id = $2`, now, id)
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

func applySantierFilter(b squirrel.SelectBuilder, f models.SantierFilter) squirrel.SelectBuilder {
	switch {
	case !f.IncludeInactive:
		b = b.Where(squirrel.Eq{"is_active": true})
	case f.IsActive != nil:
		b = b.Where(squirrel.Eq{"is_active": *f.IsActive})
	}
	if f.Search != "" {
		like := likePattern(f.Search)
		cond := squirrel.Or{
			squirrel.Expr("name ILIKE ?", like),
			squirrel.Expr("description ILIKE ?", like),
			squirrel.Expr("beneficiar ILIKE ?", like),
		}
		// В админке поиск идёт ещё и по адресу.
		if f.IncludeInactive {
			cond = append(cond,
				squirrel.Expr("localitate ILIKE ?", like),
				squirrel.Expr("adresa ILIKE ?", like),
			)
		}
		b = b.Where(cond)
	}
	if f.Judet != "" {
		b = b.Where(squirrel.Eq{"judet": f.Judet})
	}
	if f.Categorie != "" {
		b = b.Where(squirrel.Eq{"categorie": f.Categorie})
	}
	if f.Status != "" {
		b = b.Where(squirrel.Eq{"status": f.Status})
	}
	return b
}

// ListSantiere возвращает страницу записей по фильтру, новые первыми, и общее количество.
func (s *Storage) ListSantiere(ctx context.Context, f models.SantierFilter) ([]models.Santier, int, error) {
	const op = "storage.ListSantiere"
	if err := checkCtx(ctx, op); err != nil {
		return nil, 0, err
	}
	page, size := pageBounds(f.Page, f.PageSize, 20)

	countQuery, countArgs, err := applySantierFilter(psql.Select("COUNT(*)").From("santiere"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	var total int
	if err := s.DB.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	query, args, err := applySantierFilter(psql.Select(santierColumns).From("santiere"), f).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.querySantiere(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	return result, total, nil
}

// ExportSantiere возвращает до limit записей по фильтру без пагинации.
func (s *Storage) ExportSantiere(ctx context.Context, f models.SantierFilter, limit int) ([]models.Santier, error) {
	const op = "storage.ExportSantiere"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	b := applySantierFilter(psql.Select(santierColumns).From("santiere"), f).OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	result, err := s.querySantiere(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (s *Storage) querySantiere(ctx context.Context, query string, args ...any) ([]models.Santier, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []models.Santier
	for rows.Next() {
		st, err := scanSantier(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *st)
	}
	return result, rows.Err()
}

// DistinctSantierValues возвращает отсортированные непустые значения колонки для фильтров.
func (s *Storage) DistinctSantierValues(ctx context.Context, column string, activeOnly bool) ([]string, error) {
	const op = "storage.DistinctSantierValues"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	if !santierDistinctColumns[column] {
		return nil, fmt.Errorf("%s: unknown column %q: %w", op, column, models.ErrBadRequest)
	}

	b := psql.Select(column).Distinct().From("santiere").
		Where(squirrel.NotEq{column: nil}).
		Where(squirrel.NotEq{column: ""}).
		OrderBy(column)
	if activeOnly {
		b = b.Where(squirrel.Eq{"is_active": true})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	result := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// SiteStats считает активные записи: всего, за последний месяц и за последнюю неделю.
func (s *Storage) SiteStats(ctx context.Context, now time.Time) (models.SiteStats, error) {
	const op = "storage.SiteStats"
	var stats models.SiteStats
	if err := checkCtx(ctx, op); err != nil {
		return stats, err
	}
	err := s.DB.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at >= $1),
			COUNT(*) FILTER (WHERE created_at >= $2)
		FROM santiere WHERE is_active`,
		now.AddDate(0, -1, 0), now.AddDate(0, 0, -7),
	).Scan(&stats.TotalSantiere, &stats.LastMonth, &stats.LastWeek)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}

// LatestSantiere возвращает последние активные записи для главной страницы.
func (s *Storage) LatestSantiere(ctx context.Context, limit int) ([]models.Santier, error) {
	const op = "storage.LatestSantiere"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	result, err := s.querySantiere(ctx, `SELECT `+santierColumns+` FROM santiere
		WHERE is_active ORDER BY is_featured DESC, created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
