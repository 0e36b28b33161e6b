package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents an auction owner in the system.
type User struct {
	ID              uuid.UUID `json:"id"`
	DisplayName     string    `json:"display_name"`
	Email           string    `json:"email"`
	HasSubscription bool      `json:"has_subscription"`
	CreatedAt       time.Time `json:"created_at"`
}
