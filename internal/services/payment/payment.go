// Package payment содержит оплату через Stripe: разовую покупку доступа к șantier, подписку на тариф,
// обработку вебхуков, отчёт по платежам и справочник цен.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/access"
	"github.com/magabrotheeeer/datesantiere/internal/lib/sl"
	"github.com/magabrotheeeer/datesantiere/internal/metrics"
	"github.com/magabrotheeeer/datesantiere/internal/models"
	"github.com/magabrotheeeer/datesantiere/internal/paymentprovider"
)

// Значения metadata.kind в сессии оплаты.
const (
	KindSantier = "santier"
	KindPlan    = "plan"
)

// ReportPageSize размер страницы отчёта.
const ReportPageSize = 25

// UnknownEmail подставляется в отчёт, если пользователь удалён.
const UnknownEmail = "(unknown)"

const defaultCurrency = "eur"

// Repository методы хранилища платежей и цен.
type Repository interface {
	CreatePurchase(ctx context.Context, p models.PurchasedSantier) (int, error)
	CreatePaymentRecord(ctx context.Context, r models.PaymentRecord) (int, error)
	GetPaymentBySession(ctx context.Context, sessionID string) (*models.PaymentRecord, error)
	MarkPaymentPaid(ctx context.Context, sessionID, paymentIntentID string) (bool, error)
	MarkPaymentExpired(ctx context.Context, sessionID string) error
	ListPaymentReport(ctx context.Context, f models.ReportFilter) ([]models.PaymentReportRow, int, error)
	CreatePrice(ctx context.Context, p models.PaymentPrice) (int, error)
	UpdatePrice(ctx context.Context, p models.PaymentPrice) error
	DeletePrice(ctx context.Context, id int) error
	GetPrice(ctx context.Context, id int) (*models.PaymentPrice, error)
	ListPrices(ctx context.Context) ([]models.PaymentPrice, error)
	GetActiveSantierPrice(ctx context.Context) (*models.PaymentPrice, error)
}

// UserRepository методы хранилища пользователей, нужные для смены тарифа.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserBySubscriptionID(ctx context.Context, subscriptionID string) (*models.User, error)
	UpdateAccountPlan(ctx context.Context, userID string, plan models.AccountPlan) error
}

// SantierRepository загружает карточку для покупки.
type SantierRepository interface {
	GetSantier(ctx context.Context, id int) (*models.Santier, error)
}

// Gateway платёжный шлюз.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.Session, error)
	ParseEvent(payload []byte, signature string) (*paymentprovider.Event, error)
}

// Service реализует оплату.
type Service struct {
	repo     Repository
	users    UserRepository
	santiere SantierRepository
	gateway  Gateway
	planIDs  map[string]string
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New создает Service. planIDs сопоставляет тариф с идентификатором цены в Stripe.
func New(repo Repository, users UserRepository, santiere SantierRepository, gateway Gateway,
	planIDs map[string]string, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		santiere: santiere,
		gateway:  gateway,
		planIDs:  planIDs,
		log:      log,
		metrics:  m,
		now:      time.Now,
	}
}

// PurchaseSantier создает сессию разовой оплаты доступа к карточке.
func (s *Service) PurchaseSantier(ctx context.Context, userID string, santierID int) (*models.CheckoutResult, error) {
	const op = "payment.PurchaseSantier"
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	st, err := s.santiere.GetSantier(ctx, santierID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !st.IsActive {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	price, err := s.repo.GetActiveSantierPrice(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNoPriceForSantier)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, paymentprovider.CheckoutRequest{
		Mode:          paymentprovider.ModePayment,
		CustomerEmail: user.Email,
		ProductName:   st.Name,
		AmountCents:   price.AmountCents,
		Currency:      price.Currency,
		Metadata: map[string]string{
			"kind":       KindSantier,
			"user_id":    user.ID,
			"santier_id": strconv.Itoa(st.ID),
			"price_id":   strconv.Itoa(price.ID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.repo.CreatePaymentRecord(ctx, models.PaymentRecord{
		UserID:          user.ID,
		SantierID:       &st.ID,
		PriceID:         &price.ID,
		Amount:          price.AmountCents,
		Currency:        price.Currency,
		StripeSessionID: sess.ID,
		Status:          models.PaymentPending,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created",
		slog.String("user_id", user.ID), slog.Int("santier_id", st.ID), slog.String("session_id", sess.ID))
	return &models.CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// CheckoutPlan создает сессию подписки на тариф.
func (s *Service) CheckoutPlan(ctx context.Context, userID, plan string) (*models.CheckoutResult, error) {
	const op = "payment.CheckoutPlan"
	priceID, ok := s.planIDs[plan]
	if !ok || priceID == "" {
		return nil, fmt.Errorf("%s: %w", op, models.ErrUnknownPlan)
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sess, err := s.gateway.CreateCheckoutSession(ctx, paymentprovider.CheckoutRequest{
		Mode:          paymentprovider.ModeSubscription,
		CustomerEmail: user.Email,
		PriceID:       priceID,
		Metadata: map[string]string{
			"kind":    KindPlan,
			"user_id": user.ID,
			"plan":    plan,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	currency := sess.Currency
	if currency == "" {
		currency = defaultCurrency
	}
	_, err = s.repo.CreatePaymentRecord(ctx, models.PaymentRecord{
		UserID:          user.ID,
		Plan:            plan,
		Amount:          sess.AmountTotal,
		Currency:        currency,
		StripeSessionID: sess.ID,
		Status:          models.PaymentPending,
		CreatedAt:       s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("subscription checkout created",
		slog.String("user_id", user.ID), slog.String("plan", plan), slog.String("session_id", sess.ID))
	return &models.CheckoutResult{SessionID: sess.ID, URL: sess.URL}, nil
}

// HandleWebhook проверяет подпись и применяет событие Stripe. Неизвестные события подтверждаются без изменений.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	const op = "payment.HandleWebhook"
	evt, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		s.log.Warn("rejected webhook", sl.Err(err))
		return fmt.Errorf("%s: %w", op, models.ErrBadRequest)
	}
	s.metrics.PaymentEvents.WithLabelValues(evt.Type).Inc()

	switch evt.Type {
	case paymentprovider.EventCheckoutCompleted:
		err = s.checkoutCompleted(ctx, evt)
	case paymentprovider.EventCheckoutExpired:
		err = s.repo.MarkPaymentExpired(ctx, evt.SessionID)
		if errors.Is(err, models.ErrNotFound) {
			err = nil
		}
	case paymentprovider.EventSubscriptionDeleted:
		err = s.subscriptionDeleted(ctx, evt)
	default:
		s.log.Debug("ignored webhook event", slog.String("type", evt.Type))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// checkoutCompleted сначала выдаёт доступ, затем закрывает платёж. Обе записи идемпотентны,
// поэтому повтор вебхука после сбоя доводит выдачу до конца.
func (s *Service) checkoutCompleted(ctx context.Context, evt *paymentprovider.Event) error {
	record, err := s.repo.GetPaymentBySession(ctx, evt.SessionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.log.Warn("checkout for unknown session", slog.String("session_id", evt.SessionID))
			return nil
		}
		return err
	}
	if record.Status == models.PaymentPaid {
		s.log.Info("checkout already processed", slog.String("session_id", evt.SessionID))
		return nil
	}
	now := s.now().UTC()

	switch {
	case record.SantierID != nil:
		_, err := s.repo.CreatePurchase(ctx, models.PurchasedSantier{
			UserID:      record.UserID,
			SantierID:   *record.SantierID,
			PurchasedAt: now,
			SessionID:   evt.SessionID,
		})
		if err != nil {
			return err
		}
		s.log.Info("santier purchased", slog.String("user_id", record.UserID), slog.Int("santier_id", *record.SantierID))
	case record.Plan != "":
		limits := access.LimitsFor(record.Plan)
		end := now.AddDate(0, 1, 0)
		err := s.users.UpdateAccountPlan(ctx, record.UserID, models.AccountPlan{
			AccountType:         record.Plan,
			SubscriptionPlan:    record.Plan,
			SubscriptionID:      evt.SubscriptionID,
			SubscriptionEndDate: &end,
			MonthlySearchLimit:  limits.SearchLimit,
			MonthlyExportLimit:  limits.ExportLimit,
		})
		if err != nil {
			return err
		}
		s.log.Info("account upgraded", slog.String("user_id", record.UserID), slog.String("plan", record.Plan))
	}

	changed, err := s.repo.MarkPaymentPaid(ctx, evt.SessionID, evt.PaymentIntentID)
	if err != nil {
		return err
	}
	if !changed {
		s.log.Debug("payment closed concurrently", slog.String("session_id", evt.SessionID))
	}
	return nil
}

func (s *Service) subscriptionDeleted(ctx context.Context, evt *paymentprovider.Event) error {
	user, err := s.users.GetUserBySubscriptionID(ctx, evt.SubscriptionID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.log.Info("subscription not linked to user", slog.String("subscription_id", evt.SubscriptionID))
			return nil
		}
		return err
	}
	limits := access.LimitsFor(access.AccountFree)
	if err := s.users.UpdateAccountPlan(ctx, user.ID, models.AccountPlan{
		AccountType:        access.AccountFree,
		MonthlySearchLimit: limits.SearchLimit,
		MonthlyExportLimit: limits.ExportLimit,
	}); err != nil {
		return err
	}
	s.log.Info("account downgraded", slog.String("user_id", user.ID))
	return nil
}

// Report возвращает страницу отчёта по платежам.
func (s *Service) Report(ctx context.Context, f models.ReportFilter) (models.Page[models.PaymentReportRow], error) {
	const op = "payment.Report"
	f.Search = strings.TrimSpace(f.Search)
	f.PageSize = ReportPageSize
	if f.Page < 1 {
		f.Page = 1
	}
	rows, total, err := s.repo.ListPaymentReport(ctx, f)
	if err != nil {
		return models.Page[models.PaymentReportRow]{}, fmt.Errorf("%s: %w", op, err)
	}
	for i := range rows {
		if rows[i].UserEmail == "" {
			rows[i].UserEmail = UnknownEmail
		}
	}
	return models.NewPage(rows, total, f.Page, f.PageSize), nil
}

func priceFromInput(in models.PriceInput) models.PaymentPrice {
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	return models.PaymentPrice{
		Name:            in.Name,
		AmountCents:     in.AmountCents,
		Currency:        currency,
		BillingInterval: in.BillingInterval,
		IsActive:        in.IsActive,
		IsForSantier:    in.IsForSantier,
	}
}

// ListPrices возвращает справочник цен.
func (s *Service) ListPrices(ctx context.Context) ([]models.PaymentPrice, error) {
	prices, err := s.repo.ListPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("payment.ListPrices: %w", err)
	}
	return prices, nil
}

// GetPrice возвращает цену.
func (s *Service) GetPrice(ctx context.Context, id int) (*models.PaymentPrice, error) {
	p, err := s.repo.GetPrice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("payment.GetPrice: %w", err)
	}
	return p, nil
}

// CreatePrice добавляет цену.
func (s *Service) CreatePrice(ctx context.Context, in models.PriceInput) (*models.PaymentPrice, error) {
	const op = "payment.CreatePrice"
	p := priceFromInput(in)
	p.CreatedAt = s.now().UTC()
	id, err := s.repo.CreatePrice(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p.ID = id
	return &p, nil
}

// UpdatePrice изменяет цену.
func (s *Service) UpdatePrice(ctx context.Context, id int, in models.PriceInput) (*models.PaymentPrice, error) {
	const op = "payment.UpdatePrice"
	existing, err := s.repo.GetPrice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p := priceFromInput(in)
	p.ID = id
	p.CreatedAt = existing.CreatedAt
	if err := s.repo.UpdatePrice(ctx, p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

// DeletePrice удаляет цену.
func (s *Service) DeletePrice(ctx context.Context, id int) error {
	if err := s.repo.DeletePrice(ctx, id); err != nil {
		return fmt.Errorf("payment.DeletePrice: %w", err)
	}
	return nil
}
