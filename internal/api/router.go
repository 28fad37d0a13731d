package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/microsoft/update-client-server-sync/internal/api/middleware"
	"github.com/microsoft/update-client-server-sync/internal/content"
	"github.com/microsoft/update-client-server-sync/internal/soap"
)

// RouterConfig holds the dependencies NewRouter wires into the global
// middleware stack and the three upstream web services (§6).
type RouterConfig struct {
	Logger        *slog.Logger
	SOAPServer    *soap.Server
	ContentRouter *content.Router
	EnableMetrics bool
}

// NewRouter builds the top-level mux.Router: global middleware, the
// SOAP web services, and the content router.
//
// Middleware order: RequestID, then Logging, then Metrics (if enabled).
func NewRouter(config RouterConfig) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.LoggingMiddleware(config.Logger))
	if config.EnableMetrics {
		router.Use(middleware.MetricsMiddleware)
	}

	router.HandleFunc("/healthz", HealthCheckHandler(config.Logger)).Methods(http.MethodGet)

	config.SOAPServer.RegisterRoutes(router)
	if config.ContentRouter != nil {
		config.ContentRouter.Register(router)
	}

	return router
}

// HealthCheckHandler reports liveness. The catalog and its two
// external collaborators (metadata source, content store) have no
// readiness signal of their own (§1) so this only ever confirms the
// process is serving.
func HealthCheckHandler(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "healthy"}); err != nil {
			logger.Error("failed to encode health response", "error", err)
		}
	}
}
