package models

import (
	"encoding/json"
	"time"
)

// User represents a staff account in the system.
type User struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PfNo         string          `json:"pfNo"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"` // Never expose this to the client
	IsAdmin      bool            `json:"isAdmin"`
	Prescription json.RawMessage `json:"prescription"` // nil when none has been recorded
	CreatedAt    time.Time       `json:"createdAt"`
}

// PublicUser is the subset of User that is safe to return to any caller.
type PublicUser struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PfNo         string          `json:"pfNo"`
	Email        string          `json:"email"`
	IsAdmin      bool            `json:"isAdmin"`
	Prescription json.RawMessage `json:"prescription"`
}

// Public returns the projection of the user without credential material.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:           u.ID,
		Name:         u.Name,
		PfNo:         u.PfNo,
		Email:        u.Email,
		IsAdmin:      u.IsAdmin,
		Prescription: u.Prescription,
	}
}
