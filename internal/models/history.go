package models

import (
	"encoding/json"
	"time"
)

// Действия, фиксируемые в истории.
const (
	ActionCreated = "Created"
	ActionUpdated = "Updated"
	ActionDeleted = "Deleted"
)

// SantierHistory неизменяемая запись журнала изменений șantier.
type SantierHistory struct {
	ID        int             `json:"id"`
	SantierID int             `json:"santier_id"`
	UserID    string          `json:"user_id"`
	UserEmail string          `json:"user_email,omitempty"`
	Action    string          `json:"action"`
	Changes   json.RawMessage `json:"changes"`
	CreatedAt time.Time       `json:"created_at"`
	IPAddress string          `json:"ip_address,omitempty"`
}

// FieldChange значение поля до и после изменения.
type FieldChange struct {
	Before any `json:"Before"`
	After  any `json:"After"`
}
