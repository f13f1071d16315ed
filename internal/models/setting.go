package models

import "time"

// APIKeySetting хранимый ключ внешнего API.
type APIKeySetting struct {
	ID          int        `json:"id"`
	KeyName     string     `json:"key_name"`
	Category    *string    `json:"category,omitempty"`
	KeyValue    string     `json:"key_value"`
	Description *string    `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	UpdatedBy   *string    `json:"updated_by,omitempty"`
}

// APIKeySettingInput данные для создания и изменения ключа.
type APIKeySettingInput struct {
	KeyName     string  `json:"key_name" validate:"required,max=100"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	KeyValue    string  `json:"key_value" validate:"required,max=1000"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    bool    `json:"is_active"`
}
