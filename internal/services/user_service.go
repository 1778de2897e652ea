package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/medrec/prescript-be/internal/auth"
	"github.com/medrec/prescript-be/internal/models"
	"github.com/medrec/prescript-be/internal/store"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when no account matches the given key.
var ErrNotFound = errors.New("user not found")

// ErrDuplicateAccount is returned when a registration collides with an
// existing email address.
var ErrDuplicateAccount = errors.New("user already exists")

// ErrInvalidCredentials is returned on login failure. It is deliberately the
// same whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidInput is returned for structurally invalid account data.
var ErrInvalidInput = errors.New("invalid user data")

// PrescriptionStatus describes the outcome of a prescription update.
type PrescriptionStatus string

const (
	// PrescriptionUpdated means a record matched and its prescription was set.
	PrescriptionUpdated PrescriptionStatus = "updated"
	// PrescriptionNoop means a record matched but no prescription was supplied.
	PrescriptionNoop PrescriptionStatus = "noop"
	// PrescriptionNotFound means no record matched the employee number.
	PrescriptionNotFound PrescriptionStatus = "notFound"
)

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Login(email, password string) (models.User, string, error)
	Register(name, pfNo, email, password string) (models.User, string, error)
	GetUser(id string) (models.User, error)
	UpdateProfile(id, name, email, password string) (models.User, string, error)
	AdminUpdate(id, name, email string, isAdmin bool) (models.User, error)
	UserByPfNo(pfNo string) (models.User, error)
	UpdatePrescription(pfNo string, prescription json.RawMessage) (*models.User, PrescriptionStatus, error)
	ListUsers(includeSecrets bool) ([]models.User, error)
	DeleteUser(id string) error
}

// UserService provides business logic for account management.
type UserService struct {
	store  *store.UserStore
	tokens *auth.TokenIssuer
	audit  AuditServiceProvider
}

// NewUserService creates a new UserService.
func NewUserService(userStore *store.UserStore, tokens *auth.TokenIssuer, audit AuditServiceProvider) *UserService {
	return &UserService{store: userStore, tokens: tokens, audit: audit}
}

// Login verifies the credentials and mints a token on success. A missing
// account and a wrong password are indistinguishable to the caller.
func (s *UserService) Login(email, password string) (models.User, string, error) {
	user, err := s.store.ByEmail(email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.record(EventLoginFailed, "warn", "login failed for "+email, nil)
			return models.User{}, "", ErrInvalidCredentials
		}
		return models.User{}, "", err
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.record(EventLoginFailed, "warn", "login failed for "+email, &user.ID)
		return models.User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.record(EventLogin, "info", "login by "+email, &user.ID)
	return user, token, nil
}

// Register creates a new account with a hashed password and logs it in.
func (s *UserService) Register(name, pfNo, email, password string) (models.User, string, error) {
	if name == "" || email == "" || password == "" {
		return models.User{}, "", ErrInvalidInput
	}

	if _, err := s.store.ByEmail(email); err == nil {
		return models.User{}, "", ErrDuplicateAccount
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, "", err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		PfNo:         pfNo,
		Email:        email,
		PasswordHash: hashed,
	}

	if err := s.store.Create(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			// Lost the race against a concurrent registration.
			return models.User{}, "", ErrDuplicateAccount
		}
		return models.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to issue token: %w", err)
	}

	s.record(EventRegister, "info", "registered "+email, &user.ID)
	return user, token, nil
}

// GetUser retrieves a single account by its ID.
func (s *UserService) GetUser(id string) (models.User, error) {
	user, err := s.store.ByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdateProfile applies a self-service profile update. Empty fields keep
// their current value; a non-empty password is re-hashed. A fresh token is
// issued for the updated account.
func (s *UserService) UpdateProfile(id, name, email, password string) (models.User, string, error) {
	user, err := s.store.ByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, "", ErrNotFound
		}
		return models.User{}, "", err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	if password != "" {
		hashed, err := auth.HashPassword(password)
		if err != nil {
			return models.User{}, "", fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hashed
	}

	if err := s.store.Save(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return models.User{}, "", ErrDuplicateAccount
		}
		return models.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return models.User{}, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return user, token, nil
}

// AdminUpdate applies a privileged update to an account: name, email, and
// the admin flag. No token is reissued.
func (s *UserService) AdminUpdate(id, name, email string, isAdmin bool) (models.User, error) {
	user, err := s.store.ByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		user.Email = email
	}
	user.IsAdmin = isAdmin

	if err := s.store.Save(user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return models.User{}, ErrDuplicateAccount
		}
		return models.User{}, err
	}
	return user, nil
}

// UserByPfNo retrieves the account holding a prescription for the given
// employee number.
func (s *UserService) UserByPfNo(pfNo string) (models.User, error) {
	user, err := s.store.ByPfNo(pfNo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// UpdatePrescription sets the prescription for every record with the given
// employee number. The returned user reflects the record before the update;
// the status tells updated, no-op (nothing supplied), and no-match apart.
func (s *UserService) UpdatePrescription(pfNo string, prescription json.RawMessage) (*models.User, PrescriptionStatus, error) {
	user, err := s.store.ByPfNo(pfNo)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, PrescriptionNotFound, nil
		}
		return nil, "", err
	}

	if len(prescription) == 0 || string(prescription) == "null" {
		return &user, PrescriptionNoop, nil
	}

	matched, err := s.store.SetPrescription(pfNo, prescription)
	if err != nil {
		return nil, "", err
	}
	if !matched {
		// The record vanished between lookup and update.
		return nil, PrescriptionNotFound, nil
	}

	s.record(EventPrescriptionUpdate, "info", "prescription updated for pfNo "+pfNo, &user.ID)
	return &user, PrescriptionUpdated, nil
}

// ListUsers returns all accounts. Password hashes are cleared unless the
// caller explicitly opts in; no HTTP surface does.
func (s *UserService) ListUsers(includeSecrets bool) ([]models.User, error) {
	users, err := s.store.List()
	if err != nil {
		return nil, err
	}
	if !includeSecrets {
		for i := range users {
			users[i].PasswordHash = ""
		}
	}
	return users, nil
}

// DeleteUser permanently removes an account.
func (s *UserService) DeleteUser(id string) error {
	found, err := s.store.Delete(id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	s.record(EventDeleted, "info", "deleted user "+id, &id)
	return nil
}

// record writes an audit event; audit failures never fail the request.
func (s *UserService) record(eventType, level, message string, userID *string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(eventType, level, message, userID); err != nil {
		log.Warn().Err(err).Str("event", eventType).Msg("Failed to record audit event")
	}
}
