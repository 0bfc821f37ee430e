package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/inbound"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

type contextKey string

const (
	UserContextKey      contextKey = "user"
	RequestIDContextKey contextKey = "requestID"
)

type AuthMiddleware struct {
	authService inbound.AuthService
	logger      outbound.Logger
}

func NewAuthMiddleware(authService inbound.AuthService, logger outbound.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		logger:      logger,
	}
}

// RequestID tags every request with a unique id and logs its outcome.
func (m *AuthMiddleware) RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), RequestIDContextKey, id)

		m.logger.Debug("request", "id", id, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Middleware validates the bearer token and attaches the user to the
// request context. Login and health endpoints stay public.
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublicRoute(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := m.extractToken(r)
		if token == "" {
			m.unauthorized(w, "missing token")
			return
		}

		user, err := m.authService.ValidateToken(token)
		if err != nil {
			m.unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole restricts a route to users with the given role.
func (m *AuthMiddleware) RequireRole(role model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := m.GetUserFromContext(r.Context())
			if user == nil {
				m.forbidden(w, "user not found in context")
				return
			}
			if user.Role != role {
				m.forbidden(w, "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AuthMiddleware) GetUserFromContext(ctx context.Context) *model.User {
	user, _ := ctx.Value(UserContextKey).(*model.User)
	return user
}

func (m *AuthMiddleware) isPublicRoute(path string) bool {
	publicRoutes := []string{
		"/api/auth/login",
		"/api/health",
	}
	for _, route := range publicRoutes {
		if path == route {
			return true
		}
	}
	return false
}

func (m *AuthMiddleware) extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// websocket clients cannot set headers from the browser
	return r.URL.Query().Get("token")
}

func (m *AuthMiddleware) unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}

func (m *AuthMiddleware) forbidden(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	json.NewEncoder(w).Encode(map[string]string{"error": reason})
}
