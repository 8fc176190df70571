package rest

import (
	"net/http"
	"strings"

	"healthpulse/internal/logger"
	"healthpulse/internal/metrics"
	"healthpulse/internal/transport/rest/handler"
	"healthpulse/internal/transport/rest/middleware"

	"github.com/gorilla/mux"
)

// Container holds all dependencies for the router
type Container struct {
	Tokens      middleware.TokenValidator
	Assessments handler.AssessmentAPI
	Responses   handler.ResponseAPI
	Log         *logger.Logger
	CORSOrigins string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	log := c.Log
	if log == nil {
		log = logger.Nop()
	}
	r := mux.NewRouter()

	// Initialize handlers
	assessmentHandler := handler.NewAssessmentHandler(c.Assessments, log.With("handler", "assessment"))
	responseHandler := handler.NewResponseHandler(c.Responses, log.With("handler", "response"))

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.Tokens)

	// CORS middleware (apply first)
	r.Use(corsMiddleware(c.CORSOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(log.With("component", "http")))

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	// API v1 routes, all authenticated
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(authMW.RequireUser)

	// Literal paths are registered before /assessment/{assessmentId}.
	v1.HandleFunc("/assessment/generate", assessmentHandler.Generate).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessment/history", assessmentHandler.History).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessment/can-generate/{healthConcernId}", assessmentHandler.CanGenerate).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessment/response", responseHandler.Submit).Methods("POST", "OPTIONS")
	v1.HandleFunc("/assessment/response/{responseId}", responseHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessment/{assessmentId}", assessmentHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/assessment/{assessmentId}", assessmentHandler.Delete).Methods("DELETE", "OPTIONS")

	return r
}

func corsMiddleware(allowedOrigins string) mux.MiddlewareFunc {
	allowedOrigins = strings.TrimSpace(allowedOrigins)
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
