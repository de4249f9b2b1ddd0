package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/bobmcallan/vire-track/internal/handlers"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/api/health", s.app.HealthHandler).Methods(http.MethodGet)

	r.HandleFunc("/api/dashboard/{collection}", s.app.DashboardHandler.Load).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard/{collection}/invalidate", s.app.DashboardHandler.Invalidate).Methods(http.MethodPost)

	r.Handle("/ws/prices", s.app.WSHandler).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "not found")
	})

	return r
}
