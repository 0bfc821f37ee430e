package rest

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/igorofyeshuasete/authgate/domain/model"
)

// NewRouter assembles the HTTP surface. User management and audit review
// are admin-only; event recording is open to any authenticated user.
// auditStream is optional and serves the live audit websocket.
func NewRouter(handler *AuthHandler, middleware *AuthMiddleware, auditStream http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.Middleware)

	api.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", handler.Login).Methods(http.MethodPost)

	adminOnly := middleware.RequireRole(model.RoleAdmin)

	api.Handle("/users", adminOnly(http.HandlerFunc(handler.ListUsers))).Methods(http.MethodGet)
	api.Handle("/users", adminOnly(http.HandlerFunc(handler.CreateUser))).Methods(http.MethodPost)
	api.Handle("/users/{id:[0-9]+}", adminOnly(http.HandlerFunc(handler.UpdateUser))).Methods(http.MethodPut)
	api.Handle("/users/{id:[0-9]+}", adminOnly(http.HandlerFunc(handler.DeleteUser))).Methods(http.MethodDelete)

	api.Handle("/audit", adminOnly(http.HandlerFunc(handler.QueryAudit))).Methods(http.MethodGet)
	api.HandleFunc("/audit/events", handler.RecordEvent).Methods(http.MethodPost)
	if auditStream != nil {
		api.Handle("/audit/stream", adminOnly(auditStream)).Methods(http.MethodGet)
	}

	return router
}
