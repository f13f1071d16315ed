package models

import (
	"encoding/json"
	"time"
)

// SantierNote личная заметка пользователя к șantier с необязательным напоминанием.
type SantierNote struct {
	ID         int        `json:"id"`
	SantierID  int        `json:"santier_id"`
	UserID     string     `json:"user_id"`
	Nota       string     `json:"nota"`
	Alarma     *time.Time `json:"alarma,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	IsActive   bool       `json:"is_active"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
}

// NoteInput данные новой заметки.
type NoteInput struct {
	Nota   string     `json:"nota" validate:"required,max=1000"`
	Alarma *time.Time `json:"alarma"`
}

// DueAlarm заметка с наступившим напоминанием и данными для письма.
type DueAlarm struct {
	NoteID      int       `json:"note_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	SantierID   int       `json:"santier_id"`
	SantierName string    `json:"santier_name"`
	Nota        string    `json:"nota"`
	Alarma      time.Time `json:"alarma"`
}

// FavoriteSantier șantier в избранном пользователя.
type FavoriteSantier struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	SantierID int       `json:"santier_id"`
	AddedAt   time.Time `json:"added_at"`
	Notes     *string   `json:"notes,omitempty"`
	Santier   *Santier  `json:"santier,omitempty"`
}

// FavoriteInput необязательный комментарий к избранному.
type FavoriteInput struct {
	Notes *string `json:"notes" validate:"omitempty,max=1000"`
}

// SavedSearch сохранённые параметры поиска.
type SavedSearch struct {
	ID                 int             `json:"id"`
	UserID             string          `json:"user_id"`
	Name               string          `json:"name"`
	SearchParameters   json.RawMessage `json:"search_parameters"`
	EmailNotifications bool            `json:"email_notifications"`
	CreatedAt          time.Time       `json:"created_at"`
}

// SavedSearchInput данные нового сохранённого поиска.
type SavedSearchInput struct {
	Name               string          `json:"name" validate:"required,max=200"`
	SearchParameters   json.RawMessage `json:"search_parameters" validate:"required"`
	EmailNotifications bool            `json:"email_notifications"`
}
