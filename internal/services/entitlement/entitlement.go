// Package entitlement решает, получает ли пользователь полный доступ к карточке șantier,
// и ведёт месячные счётчики просмотров и экспортов.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/lib/month"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// UsageRepository хранилище счётчиков и покупок.
type UsageRepository interface {
	UpdateUsage(ctx context.Context, userID string, searches, exports int, lastReset time.Time) error
	HasActivePurchase(ctx context.Context, userID string, santierID int, now time.Time) (bool, error)
}

// Decision итог проверки доступа.
type Decision struct {
	HasAccess    bool
	LimitReached bool
}

// Service проверяет доступ и обновляет счётчики использования.
type Service struct {
	repo    UsageRepository
	log     *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New создает Service.
func New(repo UsageRepository, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// resetIfDue обнуляет счётчики, если последний сброс был в другом месяце.
func (s *Service) resetIfDue(user *models.User, now time.Time) {
	if !month.ResetDue(now, user.LastResetDate) {
		return
	}
	user.CurrentMonthSearches = 0
	user.CurrentMonthExports = 0
	user.LastResetDate = now
	s.metrics.UsageResets.Inc()
}

// Evaluate решает, видит ли пользователь карточку полностью, и учитывает просмотр.
// Строка пользователя сохраняется всегда. Если покупку проверить не удалось, карточка считается
// не купленной. Ошибки проверки и сохранения возвращаются вместе с решением.
func (s *Service) Evaluate(ctx context.Context, user *models.User, santierID int) (Decision, error) {
	const op = "entitlement.Evaluate"
	now := s.now()
	s.resetIfDue(user, now)

	var (
		d         Decision
		outcome   string
		lookupErr error
	)
	switch {
	case user.SubscriptionEndDate != nil && user.SubscriptionEndDate.After(now):
		d.HasAccess = true
		outcome = metrics.DecisionSubscription
	default:
		purchased, err := s.repo.HasActivePurchase(ctx, user.ID, santierID, now)
		if err != nil {
			s.log.Error("failed to check purchase", slog.String("user_id", user.ID), slog.Int("santier_id", santierID), sl.Err(err))
			lookupErr = err
			purchased = false
		}
		d.HasAccess = purchased
		outcome = metrics.DecisionPurchase
	}

	if !d.HasAccess {
		switch limit := user.MonthlySearchLimit; {
		case limit <= 0:
			outcome = metrics.DecisionUnlimited
		case user.CurrentMonthSearches >= limit:
			d.LimitReached = true
			outcome = metrics.DecisionLimitReached
		default:
			user.CurrentMonthSearches++
			outcome = metrics.DecisionCounted
		}
	}
	s.metrics.EntitlementDecisions.WithLabelValues(outcome).Inc()

	persistErr := s.repo.UpdateUsage(ctx, user.ID, user.CurrentMonthSearches, user.CurrentMonthExports, user.LastResetDate)
	if persistErr != nil {
		s.log.Error("failed to persist usage", slog.String("user_id", user.ID), sl.Err(persistErr))
	}
	if err := errors.Join(lookupErr, persistErr); err != nil {
		return d, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

// ConsumeExport проверяет право на экспорт и учитывает его в месячном лимите.
func (s *Service) ConsumeExport(ctx context.Context, user *models.User) error {
	const op = "entitlement.ConsumeExport"
	if !access.LimitsFor(user.AccountType).CanExportData {
		return fmt.Errorf("%s: %w", op, models.ErrExportNotAllowed)
	}

	now := s.now()
	s.resetIfDue(user, now)

	limit := user.MonthlyExportLimit
	if limit > 0 {
		if user.CurrentMonthExports >= limit {
			if err := s.repo.UpdateUsage(ctx, user.ID, user.CurrentMonthSearches, user.CurrentMonthExports, user.LastResetDate); err != nil {
				s.log.Error("failed to persist usage", slog.String("user_id", user.ID), sl.Err(err))
			}
			return fmt.Errorf("%s: %w", op, models.ErrExportLimitReached)
		}
		user.CurrentMonthExports++
	}

	if err := s.repo.UpdateUsage(ctx, user.ID, user.CurrentMonthSearches, user.CurrentMonthExports, user.LastResetDate); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
