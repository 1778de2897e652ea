package services

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/medrec/prescript-be/internal/models"
)

// Event types recorded by the audit trail.
const (
	EventRegister           = "user.register"
	EventLogin              = "user.login"
	EventLoginFailed        = "user.login_failed"
	EventDeleted            = "user.deleted"
	EventPrescriptionUpdate = "user.prescription_updated"
)

// AuditServiceProvider defines the interface for the account audit trail.
type AuditServiceProvider interface {
	Record(eventType, level, message string, userID *string) error
	Recent(limit int) ([]models.AuthEvent, error)
}

// AuditService persists account-related events.
type AuditService struct {
	db *sql.DB
}

// NewAuditService creates a new AuditService.
func NewAuditService(db *sql.DB) *AuditService {
	return &AuditService{db: db}
}

// Record logs a new event to the database.
func (s *AuditService) Record(eventType, level, message string, userID *string) error {
	event := models.AuthEvent{
		ID:      uuid.New().String(),
		Type:    eventType,
		Level:   level,
		Message: message,
		UserID:  userID,
	}

	stmt, err := s.db.Prepare("INSERT INTO auth_events (id, type, level, message, user_id) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(event.ID, event.Type, event.Level, event.Message, event.UserID)
	return err
}

// Recent retrieves the most recent events from the database.
func (s *AuditService) Recent(limit int) ([]models.AuthEvent, error) {
	rows, err := s.db.Query("SELECT id, type, level, message, user_id, created_at FROM auth_events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.AuthEvent
	for rows.Next() {
		var event models.AuthEvent
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.UserID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
