package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check and metrics
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Feed routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/users/{userID}/summary", handler.GetSummary).Methods("GET")
	api.HandleFunc("/users/{userID}/pulse", handler.GetPulse).Methods("GET")
	api.HandleFunc("/users/{userID}/opened", handler.MarkOpened).Methods("POST")
	api.HandleFunc("/users/{userID}/shown", handler.MarkShown).Methods("POST")

	// Notification and preference routes
	api.HandleFunc("/users/{userID}/notifications", handler.RequestNotification).Methods("POST")
	api.HandleFunc("/users/{userID}/preferences", handler.UpdatePreferences).Methods("PUT")

	return r
}
