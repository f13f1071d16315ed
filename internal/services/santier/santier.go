// Package santier содержит бизнес-логику каталога șantiere: публичный список и карточку с проверкой доступа,
// фильтры и статистику, а также создание, изменение и мягкое удаление из админки.
package santier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/services/entitlement"
	"github.com/magabrotheeeer/datesantiere/internal/services/history"
)

// Размеры страниц.
const (
	PublicPageSize = 20
	AdminPageSize  = 25
)

const (
	detailTTL  = 10 * time.Minute
	filtersTTL = 15 * time.Minute
)

// Repository определяет методы хранилища карточек.
type Repository interface {
	CreateSantier(ctx context.Context, s models.Santier) (int, error)
	GetSantier(ctx context.Context, id int) (*models.Santier, error)
	UpdateSantier(ctx context.Context, s models.Santier, expectedUpdatedAt time.Time) error
	DeactivateSantier(ctx context.Context, id int, now time.Time) error
	ListSantiere(ctx context.Context, f models.SantierFilter) ([]models.Santier, int, error)
	DistinctSantierValues(ctx context.Context, column string, activeOnly bool) ([]string, error)
	SiteStats(ctx context.Context, now time.Time) (models.SiteStats, error)
	LatestSantiere(ctx context.Context, limit int) ([]models.Santier, error)
}

// UserRepository загружает пользователя для проверки доступа.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Evaluator проверяет доступ пользователя к карточке.
type Evaluator interface {
	Evaluate(ctx context.Context, user *models.User, santierID int) (entitlement.Decision, error)
}

// HistoryRecorder ведёт журнал изменений.
type HistoryRecorder interface {
	RecordCreate(ctx context.Context, s *models.Santier, actor history.Actor)
	RecordUpdate(ctx context.Context, before, after *models.Santier, actor history.Actor)
	RecordDelete(ctx context.Context, s *models.Santier, actor history.Actor)
	List(ctx context.Context, santierID int) ([]models.SantierHistory, error)
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// Service реализует операции каталога.
type Service struct {
	repo      Repository
	users     UserRepository
	evaluator Evaluator
	history   HistoryRecorder
	cache     Cache
	lists     Cache
	log       *slog.Logger
	now       func() time.Time
}

// New создает Service. cache хранит карточки, lists хранит списки значений для фильтров.
func New(repo Repository, users UserRepository, evaluator Evaluator, recorder HistoryRecorder,
	cache, lists Cache, log *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		evaluator: evaluator,
		history:   recorder,
		cache:     cache,
		lists:     lists,
		log:       log,
		now:       time.Now,
	}
}

func detailKey(id int) string {
	return fmt.Sprintf("santier:%d", id)
}

// List возвращает страницу активных карточек.
func (s *Service) List(ctx context.Context, f models.SantierFilter) (models.Page[models.Santier], error) {
	const op = "santier.List"
	f.IncludeInactive = false
	f.IsActive = nil
	f.PageSize = PublicPageSize
	if f.Page < 1 {
		f.Page = 1
	}
	items, total, err := s.repo.ListSantiere(ctx, f)
	if err != nil {
		return models.Page[models.Santier]{}, fmt.Errorf("%s: %w", op, err)
	}
	for i := range items {
		items[i] = items[i].Preview()
	}
	return models.NewPage(items, total, f.Page, f.PageSize), nil
}

// AdminList возвращает страницу карточек, включая неактивные.
func (s *Service) AdminList(ctx context.Context, f models.SantierFilter) (models.Page[models.Santier], error) {
	const op = "santier.AdminList"
	f.IncludeInactive = true
	if f.PageSize <= 0 {
		f.PageSize = AdminPageSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	items, total, err := s.repo.ListSantiere(ctx, f)
	if err != nil {
		return models.Page[models.Santier]{}, fmt.Errorf("%s: %w", op, err)
	}
	return models.NewPage(items, total, f.Page, f.PageSize), nil
}

// get возвращает карточку из кеша или хранилища.
func (s *Service) get(ctx context.Context, id int) (*models.Santier, error) {
	var cached models.Santier
	key := detailKey(id)
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	st, err := s.repo.GetSantier(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, st, detailTTL); err != nil {
		s.log.Warn("failed to cache santier", slog.String("key", key), sl.Err(err))
	}
	return st, nil
}

func (s *Service) invalidate(id int) {
	key := detailKey(id)
	if err := s.cache.Invalidate(key); err != nil {
		s.log.Warn("failed to remove from cache", slog.String("key", key), sl.Err(err))
	}
	for _, column := range []string{"judet", "categorie", "status"} {
		for _, active := range []bool{true, false} {
			lk := listKey(column, active)
			if err := s.lists.Invalidate(lk); err != nil {
				s.log.Warn("failed to remove from cache", slog.String("key", lk), sl.Err(err))
			}
		}
	}
}

// Details возвращает карточку активного șantier с решением о доступе.
// Гость, пользователь с исчерпанным лимитом и любой случай сбоя проверки доступа
// получают карточку без контактных данных.
func (s *Service) Details(ctx context.Context, id int, userID string) (*models.SantierDetails, error) {
	const op = "santier.Details"
	st, err := s.get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	if userID == "" {
		return &models.SantierDetails{Santier: st.Preview(), Preview: true}, nil
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	decision, err := s.evaluator.Evaluate(ctx, user, id)
	if err != nil {
		s.log.Error("entitlement evaluation failed", slog.String("user_id", userID), slog.Int("santier_id", id), sl.Err(err))
	}

	details := &models.SantierDetails{
		Santier:      *st,
		HasAccess:    decision.HasAccess,
		LimitReached: decision.LimitReached,
	}
	if err != nil || (!decision.HasAccess && decision.LimitReached) {
		details.Santier = st.Preview()
		details.Preview = true
	}
	return details, nil
}

func listKey(column string, activeOnly bool) string {
	return fmt.Sprintf("filters:%s:%t", column, activeOnly)
}

func (s *Service) distinct(ctx context.Context, column string, activeOnly bool) ([]string, error) {
	key := listKey(column, activeOnly)
	var values []string
	found, err := s.lists.Get(key, &values)
	if err != nil {
		s.log.Warn("failed to read from cache", slog.String("key", key), sl.Err(err))
	}
	if found {
		return values, nil
	}

	values, err = s.repo.DistinctSantierValues(ctx, column, activeOnly)
	if err != nil {
		return nil, err
	}
	if err := s.lists.Set(key, values, filtersTTL); err != nil {
		s.log.Warn("failed to cache filter values", slog.String("key", key), sl.Err(err))
	}
	return values, nil
}

// Judete возвращает отсортированный список județe активных карточек.
func (s *Service) Judete(ctx context.Context) ([]string, error) {
	const op = "santier.Judete"
	v, err := s.distinct(ctx, "judet", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// Categorii возвращает отсортированный список категорий активных карточек.
func (s *Service) Categorii(ctx context.Context) ([]string, error) {
	const op = "santier.Categorii"
	v, err := s.distinct(ctx, "categorie", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// Statuses возвращает все встречающиеся статусы, включая неактивные карточки.
func (s *Service) Statuses(ctx context.Context) ([]string, error) {
	const op = "santier.Statuses"
	v, err := s.distinct(ctx, "status", false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return v, nil
}

// HomeData данные главной страницы.
type HomeData struct {
	Stats  models.SiteStats `json:"stats"`
	Latest []models.Santier `json:"latest"`
}

// Home возвращает статистику и последние карточки без контактных данных.
func (s *Service) Home(ctx context.Context) (*HomeData, error) {
	const op = "santier.Home"
	stats, err := s.repo.SiteStats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	latest, err := s.repo.LatestSantiere(ctx, 6)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for i := range latest {
		latest[i] = latest[i].Preview()
	}
	if latest == nil {
		latest = []models.Santier{}
	}
	return &HomeData{Stats: stats, Latest: latest}, nil
}

// Get возвращает карточку для админки независимо от активности.
func (s *Service) Get(ctx context.Context, id int) (*models.Santier, error) {
	const op = "santier.Get"
	st, err := s.repo.GetSantier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return st, nil
}

// Create создает активную карточку и записывает её в историю.
func (s *Service) Create(ctx context.Context, in models.SantierInput, actor history.Actor) (*models.Santier, error) {
	const op = "santier.Create"
	now := s.now().UTC().Truncate(time.Microsecond)
	st := models.Santier{IsActive: true}
	in.Apply(&st)
	st.IsActive = true
	st.CreatedAt = now
	st.UpdatedAt = now

	id, err := s.repo.CreateSantier(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st.ID = id
	s.log.Info("created santier", slog.Int("id", id))

	s.history.RecordCreate(ctx, &st, actor)
	s.invalidate(id)
	return &st, nil
}

// Update применяет изменения к карточке id. Идентификатор в теле должен совпадать с id.
// Карточка, удалённая параллельно, даёт models.ErrNotFound, изменённая параллельно даёт models.ErrConflict.
func (s *Service) Update(ctx context.Context, id int, in models.SantierInput, actor history.Actor) (*models.Santier, error) {
	const op = "santier.Update"
	if in.ID != id {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}

	before, err := s.repo.GetSantier(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	after := *before
	in.Apply(&after)
	after.ID = id
	after.CreatedAt = before.CreatedAt
	after.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)

	if err := s.repo.UpdateSantier(ctx, after, before.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(id)
	s.log.Info("updated santier", slog.Int("id", id))

	s.history.RecordUpdate(ctx, before, &after, actor)
	return &after, nil
}

// Delete помечает карточку неактивной и записывает удаление в историю.
func (s *Service) Delete(ctx context.Context, id int, actor history.Actor) error {
	const op = "santier.Delete"
	st, err := s.repo.GetSantier(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.repo.DeactivateSantier(ctx, id, s.now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.invalidate(id)
	s.log.Info("deactivated santier", slog.Int("id", id))

	s.history.RecordDelete(ctx, st, actor)
	return nil
}

// History возвращает журнал изменений существующей карточки.
func (s *Service) History(ctx context.Context, id int) ([]models.SantierHistory, error) {
	const op = "santier.History"
	if _, err := s.repo.GetSantier(ctx, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	entries, err := s.history.List(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return entries, nil
}
