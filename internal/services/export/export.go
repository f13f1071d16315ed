// Package export формирует выгрузки șantiere в Excel для администраторов и пользователей с платным тарифом.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// ContentType тип содержимого файла xlsx.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UserExportLimit максимальное число строк в пользовательской выгрузке.
const UserExportLimit = 1000

// Варианты выгрузки для метрик.
const (
	VariantAdmin = "admin"
	VariantUser  = "user"
)

var adminHeaders = []string{
	"ID", "Nume", "Județ", "Localitate", "Beneficiar", "Categorie", "Status",
	"Valoare Est.", "Data Creare", "Latitudine", "Longitudine",
}

var userHeaders = []string{
	"Nume", "Descriere", "Județ", "Localitate", "Beneficiar", "Categorie", "Status",
	"Valoare Est.", "Data Începere", "Data Finalizare",
}

// Repository выбирает записи для выгрузки.
type Repository interface {
	ExportSantiere(ctx context.Context, f models.SantierFilter, limit int) ([]models.Santier, error)
}

// UserRepository загружает пользователя для проверки квоты.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Quota списывает выгрузку с месячного лимита.
type Quota interface {
	ConsumeExport(ctx context.Context, user *models.User) error
}

// File готовый файл выгрузки.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Service формирует выгрузки.
type Service struct {
	repo    Repository
	users   UserRepository
	quota   Quota
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New создает Service.
func New(repo Repository, users UserRepository, quota Quota, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, users: users, quota: quota, log: log, metrics: m, now: time.Now}
}

func (s *Service) fileName() string {
	return "Santiere_" + s.now().Format("2006-01-02_15-04-05") + ".xlsx"
}

// AdminExport выгружает весь отфильтрованный список, включая неактивные записи.
func (s *Service) AdminExport(ctx context.Context, f models.SantierFilter) (*File, error) {
	const op = "export.AdminExport"
	f.IncludeInactive = true
	items, err := s.repo.ExportSantiere(ctx, f, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows := make([][]cell, 0, len(items))
	for _, st := range items {
		rows = append(rows, []cell{
			{value: st.ID},
			text(st.Name),
			text(st.Judet),
			text(st.Localitate),
			text(st.Beneficiar),
			text(st.Categorie),
			textOrDash(st.Status),
			number(st.ValoareEstimata),
			text(st.CreatedAt.Format(dateLayout)),
			coordinate(st.Latitude),
			coordinate(st.Longitude),
		})
	}
	return s.build(op, VariantAdmin, adminHeaders, rows)
}

// UserExport выгружает до UserExportLimit активных записей по публичным фильтрам.
// Квота списывается только после того, как файл собран.
func (s *Service) UserExport(ctx context.Context, userID string, f models.SantierFilter) (*File, error) {
	const op = "export.UserExport"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	f.IncludeInactive = false
	f.IsActive = nil
	items, err := s.repo.ExportSantiere(ctx, f, UserExportLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows := make([][]cell, 0, len(items))
	for _, st := range items {
		rows = append(rows, []cell{
			text(st.Name),
			textOrDash(st.Description),
			text(st.Judet),
			text(st.Localitate),
			text(st.Beneficiar),
			text(st.Categorie),
			textOrDash(st.Status),
			number(st.ValoareEstimata),
			date(st.DataIncepere),
			date(st.DataFinalizare),
		})
	}
	data, err := buildWorkbook(userHeaders, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.quota.ConsumeExport(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.generated(VariantUser, len(rows), data), nil
}

func (s *Service) build(op, variant string, headers []string, rows [][]cell) (*File, error) {
	data, err := buildWorkbook(headers, rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.generated(variant, len(rows), data), nil
}

func (s *Service) generated(variant string, rows int, data []byte) *File {
	s.metrics.Exports.WithLabelValues(variant).Inc()
	s.log.Info("export generated",
		slog.String("variant", variant),
		slog.Int("rows", rows),
		slog.String("size", humanize.Bytes(uint64(len(data)))))
	return &File{Name: s.fileName(), ContentType: ContentType, Data: data}
}
