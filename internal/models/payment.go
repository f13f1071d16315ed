package models

import "time"

// Статусы платежа.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentExpired = "expired"
)

// Интервалы тарификации цены.
const (
	IntervalOneTime = "one-time"
	IntervalMonthly = "monthly"
	IntervalAnnual  = "annual"
)

// PurchasedSantier разовая покупка доступа к конкретному șantier.
type PurchasedSantier struct {
	ID          int        `json:"id"`
	UserID      string     `json:"user_id"`
	SantierID   int        `json:"santier_id"`
	PurchasedAt time.Time  `json:"purchased_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"` // nil означает бессрочный доступ
	// SessionID сессия Stripe, оплатившая доступ. Пустая у покупок, перенесённых из старой базы.
	SessionID string `json:"-"`
}

// PaymentRecord запись о платеже через Stripe.
type PaymentRecord struct {
	ID                    int       `json:"id"`
	UserID                string    `json:"user_id"`
	SantierID             *int      `json:"santier_id,omitempty"`
	PriceID               *int      `json:"price_id,omitempty"`
	Plan                  string    `json:"plan,omitempty"`
	Amount                int64     `json:"amount"` // В минимальных единицах валюты
	Currency              string    `json:"currency"`
	StripeSessionID       string    `json:"stripe_session_id"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id,omitempty"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
}

// PaymentReportRow строка отчёта по платежам с e-mail пользователя.
type PaymentReportRow struct {
	PaymentRecord
	UserEmail string `json:"user_email"`
}

// ReportFilter параметры отчёта по платежам.
type ReportFilter struct {
	Search   string
	Page     int
	PageSize int
}

// PaymentPrice цена, настраиваемая администратором.
type PaymentPrice struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
	BillingInterval string    `json:"billing_interval"`
	IsActive        bool      `json:"is_active"`
	IsForSantier    bool      `json:"is_for_santier"`
	CreatedAt       time.Time `json:"created_at"`
}

// PriceInput данные для создания и изменения цены.
type PriceInput struct {
	Name            string `json:"name" validate:"required,max=200"`
	AmountCents     int64  `json:"amount_cents" validate:"gt=0"`
	Currency        string `json:"currency" validate:"omitempty,len=3"`
	BillingInterval string `json:"billing_interval" validate:"required,oneof=one-time monthly annual"`
	IsActive        bool   `json:"is_active"`
	IsForSantier    bool   `json:"is_for_santier"`
}

// CheckoutRequest выбор тарифа для подписки.
type CheckoutRequest struct {
	Plan string `json:"plan" validate:"required,oneof=Basic Premium Enterprise"`
}

// CheckoutResult ссылка на оплату и идентификатор сессии.
type CheckoutResult struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
