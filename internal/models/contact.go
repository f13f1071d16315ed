package models

import "time"

// ContactRequest обращение через форму обратной связи.
type ContactRequest struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       *string    `json:"phone,omitempty"`
	Company     *string    `json:"company,omitempty"`
	CUI         *string    `json:"cui,omitempty"`
	Message     string     `json:"message"`
	RequestType string     `json:"request_type"`
	CreatedAt   time.Time  `json:"created_at"`
	IsProcessed bool       `json:"is_processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ProcessedBy *string    `json:"processed_by,omitempty"`
	Response    *string    `json:"response,omitempty"`
}

// ContactInput данные формы обратной связи.
type ContactInput struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        *string `json:"phone" validate:"omitempty,max=50"`
	Company      *string `json:"company" validate:"omitempty,max=200"`
	CUI          *string `json:"cui" validate:"omitempty,max=20"`
	Message      string  `json:"message" validate:"required,max=2000"`
	RequestType  string  `json:"request_type" validate:"omitempty,oneof=General Quote Demo Support"`
	CaptchaToken string  `json:"captcha_token"`
}

// ContactProcessInput ответ администратора на обращение.
type ContactProcessInput struct {
	Response string `json:"response" validate:"required,max=4000"`
}

// Newsletter подписка на рассылку.
type Newsletter struct {
	ID               int        `json:"id"`
	Email            string     `json:"email"`
	Name             *string    `json:"name,omitempty"`
	SubscribedAt     time.Time  `json:"subscribed_at"`
	IsActive         bool       `json:"is_active"`
	UnsubscribeToken string     `json:"-"`
	UnsubscribedAt   *time.Time `json:"unsubscribed_at,omitempty"`
}

// NewsletterInput данные подписки на рассылку.
type NewsletterInput struct {
	Email string  `json:"email"`
	Name  *string `json:"name"`
}
