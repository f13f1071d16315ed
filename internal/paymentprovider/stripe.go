// Package paymentprovider оборачивает Stripe: создание сессий оплаты и проверку подписи вебхуков.
package paymentprovider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Режимы сессии оплаты.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Типы событий, которые обрабатывает приложение.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventCheckoutExpired     = "checkout.session.expired"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Config ключи и адреса возврата Stripe.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

// CheckoutRequest параметры сессии оплаты. PriceID задаёт цену из каталога Stripe,
// иначе используется сумма AmountCents в валюте Currency.
type CheckoutRequest struct {
	Mode          string
	CustomerEmail string
	PriceID       string
	ProductName   string
	AmountCents   int64
	Currency      string
	Metadata      map[string]string
}

// Session созданная сессия оплаты.
type Session struct {
	ID          string
	URL         string
	AmountTotal int64
	Currency    string
}

// Event событие вебхука, приведённое к полям, которые нужны приложению.
type Event struct {
	ID              string
	Type            string
	SessionID       string
	PaymentIntentID string
	SubscriptionID  string
	Metadata        map[string]string
}

// Client клиент Stripe.
type Client struct {
	cfg Config
}

// NewClient создаёт клиент и задаёт секретный ключ API.
func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	return &Client{cfg: cfg}
}

// CreateCheckoutSession создаёт сессию Stripe Checkout.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	const op = "paymentprovider.CreateCheckoutSession"
	item := &stripe.CheckoutSessionLineItemParams{Quantity: stripe.Int64(1)}
	if req.PriceID != "" {
		item.Price = stripe.String(req.PriceID)
	} else {
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(req.Currency),
			UnitAmount: stripe.Int64(req.AmountCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(req.ProductName),
			},
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(req.Mode),
		LineItems:  []*stripe.CheckoutSessionLineItemParams{item},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
		Metadata:   req.Metadata,
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.Mode == ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{Metadata: req.Metadata}
	}

	sess, err := checksession.New(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Session{
		ID:          sess.ID,
		URL:         sess.URL,
		AmountTotal: sess.AmountTotal,
		Currency:    string(sess.Currency),
	}, nil
}

// ParseEvent проверяет подпись вебхука и разбирает событие.
func (c *Client) ParseEvent(payload []byte, signature string) (*Event, error) {
	const op = "paymentprovider.ParseEvent"
	evt, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &Event{ID: evt.ID, Type: string(evt.Type)}
	if evt.Data == nil {
		return result, nil
	}
	switch result.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.SessionID = sess.ID
		result.Metadata = sess.Metadata
		if sess.PaymentIntent != nil {
			result.PaymentIntentID = sess.PaymentIntent.ID
		}
		if sess.Subscription != nil {
			result.SubscriptionID = sess.Subscription.ID
		}
	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result.SubscriptionID = sub.ID
		result.Metadata = sub.Metadata
	}
	return result, nil
}
