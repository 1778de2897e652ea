package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/medrec/prescript-be/internal/auth"
	"github.com/medrec/prescript-be/internal/models"
	"github.com/medrec/prescript-be/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for account management.
type UserHandler struct {
	service  services.UserServiceProvider
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: validator.New(),
	}
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name" validate:"required"`
	PfNo     string `json:"pfNo" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// UpdateProfilePayload defines the structure for self-service profile updates.
// Empty fields keep their current value.
type UpdateProfilePayload struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// AdminUpdatePayload defines the structure for privileged account updates.
type AdminUpdatePayload struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	IsAdmin bool   `json:"isAdmin"`
}

// PrescriptionPayload defines the structure for prescription updates.
type PrescriptionPayload struct {
	Prescription json.RawMessage `json:"prescription"`
}

type authResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

type registerResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	PfNo         string          `json:"pfNo"`
	Email        string          `json:"email"`
	IsAdmin      bool            `json:"isAdmin"`
	Prescription json.RawMessage `json:"prescription"`
	Token        string          `json:"token"`
}

// Login handles credential verification and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		// A malformed email is just a failed login; do not leak which part.
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	user, token, err := h.service.Login(payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			log.Warn().Str("email", payload.Email).Msg("Failed authentication attempt")
			http.Error(w, "Invalid email or password", http.StatusUnauthorized)
			return
		}
		log.Error().Err(err).Str("email", payload.Email).Msg("Login failed")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Token:   token,
	})
}

// Register handles new account registration. Registration implies login, so
// the response carries a token.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		http.Error(w, "Invalid user data", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.Register(payload.Name, payload.PfNo, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateAccount):
			http.Error(w, "User already exists", http.StatusBadRequest)
		case errors.Is(err, services.ErrInvalidInput):
			http.Error(w, "Invalid user data", http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("email", payload.Email).Msg("Failed to register user")
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registerResponse{
		ID:           user.ID,
		Name:         user.Name,
		PfNo:         user.PfNo,
		Email:        user.Email,
		IsAdmin:      user.IsAdmin,
		Prescription: user.Prescription,
		Token:        token,
	})
}

// GetProfile returns the authenticated account's own record.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	user, err := h.service.GetUser(userID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load profile")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Public())
}

// UpdateProfile applies a self-service update and reissues a token.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	var payload UpdateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		http.Error(w, "Invalid user data", http.StatusBadRequest)
		return
	}

	user, token, err := h.service.UpdateProfile(userID, payload.Name, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, services.ErrDuplicateAccount):
			http.Error(w, "User already exists", http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to update profile")
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Token:   token,
	})
}

// GetAll handles the admin listing of all accounts.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(false)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list users")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	projected := make([]models.PublicUser, 0, len(users))
	for _, user := range users {
		projected = append(projected, user.Public())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(projected)
}

// Get handles the admin read of a single account by ID.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user, err := h.service.GetUser(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user_id", id).Msg("Failed to get user by ID")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Public())
}

// Update handles the privileged update of an account.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload AdminUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		http.Error(w, "Invalid user data", http.StatusBadRequest)
		return
	}

	user, err := h.service.AdminUpdate(id, payload.Name, payload.Email, payload.IsAdmin)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, services.ErrDuplicateAccount):
			http.Error(w, "User already exists", http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("user_id", id).Msg("Failed to update user")
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      user.ID,
		"name":    user.Name,
		"email":   user.Email,
		"isAdmin": user.IsAdmin,
	})
}

// Delete handles the permanent removal of an account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteUser(id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("user_id", id).Msg("Failed to delete user")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "User removed"})
}

// GetPrescription handles the prescription read keyed by employee number.
func (h *UserHandler) GetPrescription(w http.ResponseWriter, r *http.Request) {
	pfNo := chi.URLParam(r, "pfNo")
	user, err := h.service.UserByPfNo(pfNo)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("pf_no", pfNo).Msg("Failed to get prescription")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Public())
}

// UpdatePrescription handles the prescription update keyed by employee
// number. The response keeps the historical {user, updateStatus} envelope but
// reports a distinguishable status instead of an unconditional success.
func (h *UserHandler) UpdatePrescription(w http.ResponseWriter, r *http.Request) {
	pfNo := chi.URLParam(r, "pfNo")
	var payload PrescriptionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, status, err := h.service.UpdatePrescription(pfNo, payload.Prescription)
	if err != nil {
		log.Error().Err(err).Str("pf_no", pfNo).Msg("Failed to update prescription")
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	var projected *models.PublicUser
	if user != nil {
		p := user.Public()
		projected = &p
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user":         projected,
		"updateStatus": status,
	})
}
