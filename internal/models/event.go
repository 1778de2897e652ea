package models

import "time"

// AuthEvent represents a loggable account action in the system.
type AuthEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g. "user.register", "user.login_failed"
	Level     string    `json:"level"` // e.g. "info", "warn"
	Message   string    `json:"message"`
	UserID    *string   `json:"userId,omitempty"` // Nullable for events with no resolved account
	CreatedAt time.Time `json:"createdAt"`
}
