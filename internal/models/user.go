// Package models содержит доменные структуры приложения: пользователей, șantiere,
// платежи, историю изменений и вспомогательные DTO для JSON-запросов.
package models

import "time"

// User представляет зарегистрированного пользователя вместе с тарифом и счётчиками использования.
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	PasswordHash         string     `json:"-"`
	FirstName            string     `json:"first_name"`
	LastName             string     `json:"last_name"`
	Company              string     `json:"company,omitempty"`
	CUI                  string     `json:"cui,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	IsActive             bool       `json:"is_active"`
	AdminType            string     `json:"admin_type,omitempty"` // Пустая строка означает отсутствие прав администратора
	AccountType          string     `json:"account_type"`
	SubscriptionID       string     `json:"subscription_id,omitempty"`
	SubscriptionEndDate  *time.Time `json:"subscription_end_date,omitempty"`
	SubscriptionPlan     string     `json:"subscription_plan,omitempty"`
	MonthlySearchLimit   int        `json:"monthly_search_limit"` // -1 без ограничений
	MonthlyExportLimit   int        `json:"monthly_export_limit"` // -1 без ограничений
	CurrentMonthSearches int        `json:"current_month_searches"`
	CurrentMonthExports  int        `json:"current_month_exports"`
	LastResetDate        time.Time  `json:"last_reset_date"`
}

// RegisterRequest принимает данные регистрации из JSON-запроса.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	Company         string `json:"company" validate:"max=200"`
	CUI             string `json:"cui" validate:"max=20"`
	CaptchaToken    string `json:"captcha_token"`
}

// LoginRequest принимает учётные данные пользователя.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate содержит редактируемые пользователем поля профиля.
type ProfileUpdate struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Company   string `json:"company" validate:"max=200"`
	CUI       string `json:"cui" validate:"max=20"`
}

// ForgotPasswordRequest запрос на сброс пароля.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest завершает сброс пароля по токену.
type ResetPasswordRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// UserFilter параметры поиска пользователей в админке.
type UserFilter struct {
	Search      string
	AccountType string
	AdminType   string // "None" выбирает пользователей без прав администратора
	IsActive    *bool
	Page        int
	PageSize    int
}

// AdminUserUpdate содержит поля, которые администратор может изменить у пользователя.
type AdminUserUpdate struct {
	FirstName          string `json:"first_name" validate:"required,max=100"`
	LastName           string `json:"last_name" validate:"required,max=100"`
	Company            string `json:"company" validate:"max=200"`
	CUI                string `json:"cui" validate:"max=20"`
	IsActive           bool   `json:"is_active"`
	AccountType        string `json:"account_type" validate:"required"`
	AdminType          string `json:"admin_type"`
	MonthlySearchLimit int    `json:"monthly_search_limit" validate:"gte=-1"`
	MonthlyExportLimit int    `json:"monthly_export_limit" validate:"gte=-1"`
}

// AccountPlan набор полей тарифа, который меняется при оплате подписки.
type AccountPlan struct {
	AccountType         string
	SubscriptionPlan    string
	SubscriptionID      string
	SubscriptionEndDate *time.Time
	MonthlySearchLimit  int
	MonthlyExportLimit  int
}
