// Package store owns persistence of account records.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/mattn/go-sqlite3"
	"github.com/medrec/prescript-be/internal/models"
)

// ErrNotFound is returned when no record matches the given key.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a creation collides with an existing
// email address.
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore provides access to persisted user records.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, name, pf_no, email, password_hash, is_admin, prescription_json, created_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var user models.User
	var prescription sql.NullString
	err := row.Scan(&user.ID, &user.Name, &user.PfNo, &user.Email, &user.PasswordHash, &user.IsAdmin, &prescription, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	if prescription.Valid {
		user.Prescription = json.RawMessage(prescription.String)
	}
	return user, nil
}

// ByID retrieves a single user by their ID.
func (s *UserStore) ByID(id string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// ByEmail retrieves a single user by their email address.
func (s *UserStore) ByEmail(email string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// ByPfNo retrieves a single user by their employee number. pf_no is not
// unique; when several records share the number the oldest one wins.
func (s *UserStore) ByPfNo(pfNo string) (models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE pf_no = ? ORDER BY created_at, rowid LIMIT 1", pfNo)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// Create inserts a new user record. The email column is UNIQUE, so a
// concurrent registration with the same address fails here even if it slipped
// past the caller's pre-check.
func (s *UserStore) Create(user models.User) error {
	stmt, err := s.db.Prepare("INSERT INTO users(id, name, pf_no, email, password_hash, is_admin, prescription_json) VALUES(?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(user.ID, user.Name, user.PfNo, user.Email, user.PasswordHash, user.IsAdmin, prescriptionValue(user.Prescription))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// Save persists a full-record mutation of an existing user.
func (s *UserStore) Save(user models.User) error {
	res, err := s.db.Exec(
		"UPDATE users SET name = ?, pf_no = ?, email = ?, password_hash = ?, is_admin = ?, prescription_json = ? WHERE id = ?",
		user.Name, user.PfNo, user.Email, user.PasswordHash, user.IsAdmin, prescriptionValue(user.Prescription), user.ID,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateEmail
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPrescription updates only the prescription field of every record with
// the given employee number. It reports whether any record matched, so
// callers can tell "updated" apart from "no such employee".
func (s *UserStore) SetPrescription(pfNo string, prescription json.RawMessage) (bool, error) {
	res, err := s.db.Exec("UPDATE users SET prescription_json = ? WHERE pf_no = ?", prescriptionValue(prescription), pfNo)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List retrieves all user records in creation order.
func (s *UserStore) List() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Delete removes a user record and reports whether it existed.
func (s *UserStore) Delete(id string) (bool, error) {
	res, err := s.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func prescriptionValue(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}
