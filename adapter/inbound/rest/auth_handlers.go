package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/inbound"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

type AuthHandler struct {
	authService inbound.AuthService
	logger      outbound.Logger
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Status            model.AuthStatus    `json:"status"`
	User              *model.UserResponse `json:"user,omitempty"`
	Token             string              `json:"token,omitempty"`
	RemainingAttempts *int                `json:"remaining_attempts,omitempty"`
	UnlockInSeconds   *int                `json:"unlock_in_seconds,omitempty"`
	Message           string              `json:"message,omitempty"`
}

type CreateUserRequest struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Name     string         `json:"name"`
	Role     model.UserRole `json:"role"`
}

type UpdateUserRequest struct {
	Password string `json:"password"`
	Name     string `json:"name"`
}

type EventRequest struct {
	Action  string `json:"action"`
	Details string `json:"details"`
}

func NewAuthHandler(authService inbound.AuthService, logger outbound.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode login request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password required", http.StatusBadRequest)
		return
	}

	result, err := h.authService.Authenticate(req.Username, req.Password)
	if err != nil {
		h.logger.Error("authentication error", "username", req.Username, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	switch result.Status {
	case model.AuthSuccess:
		writeJSON(w, http.StatusOK, LoginResponse{
			Status: result.Status,
			User:   result.User.ToResponse(),
			Token:  result.Token,
		})

	case model.AuthLocked:
		unlockIn := int(result.UnlockIn / time.Second)
		writeJSON(w, http.StatusLocked, LoginResponse{
			Status:          result.Status,
			UnlockInSeconds: &unlockIn,
			Message:         "account temporarily locked",
		})

	default:
		remaining := result.RemainingAttempts
		// never reveal which of the two fields was wrong
		writeJSON(w, http.StatusUnauthorized, LoginResponse{
			Status:            result.Status,
			RemainingAttempts: &remaining,
			Message:           "invalid credentials",
		})
	}
}

func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode create user request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Role == "" {
		req.Role = model.RoleUser
	}

	user, err := h.authService.CreateUser(req.Username, req.Password, req.Name, req.Role)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user.ToResponse())
}

func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode update user request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.authService.UpdateUser(id, req.Password, req.Name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user.ToResponse())
}

func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.authService.DeleteUser(id); err != nil {
		h.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers()
	if err != nil {
		h.logger.Error("failed to list users", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// QueryAudit serves the administrative review surface. Filters come in
// as query parameters: username, actions (comma-separated), from, to.
func (h *AuthHandler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	filter := model.AuditFilter{
		Username: r.URL.Query().Get("username"),
	}
	if actions := r.URL.Query().Get("actions"); actions != "" {
		filter.Actions = strings.Split(actions, ",")
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.ParseInLocation(model.AuditTimeLayout, from, time.Local)
		if err != nil {
			http.Error(w, "Invalid 'from' timestamp", http.StatusBadRequest)
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.ParseInLocation(model.AuditTimeLayout, to, time.Local)
		if err != nil {
			http.Error(w, "Invalid 'to' timestamp", http.StatusBadRequest)
			return
		}
		filter.To = t
	}

	entries, err := h.authService.QueryAuditLog(filter)
	if err != nil {
		h.logger.Error("audit query failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// RecordEvent lets the authenticated UI layer append business events
// (e.g. "calculation") to the audit trail.
func (h *AuthHandler) RecordEvent(w http.ResponseWriter, r *http.Request) {
	user, _ := r.Context().Value(UserContextKey).(*model.User)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.authService.RecordEvent(user.Username, req.Action, req.Details)
	w.WriteHeader(http.StatusAccepted)
}

func (h *AuthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, model.ErrDuplicateUser):
		status = http.StatusConflict
	case errors.Is(err, model.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, model.ErrProtectedAccount):
		status = http.StatusForbidden
	default:
		h.logger.Error("user operation failed", "error", err)
		http.Error(w, "Internal server error", status)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
