package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/filevault/internal/api/handler"
	mw "github.com/edvin/filevault/internal/api/middleware"
	"github.com/edvin/filevault/internal/config"
	"github.com/edvin/filevault/internal/core"
	"github.com/edvin/filevault/internal/transfer"
)

type Server struct {
	router      chi.Router
	logger      zerolog.Logger
	services    *core.Services
	pool        *pgxpool.Pool
	cfg         *config.Config
	auditLogger *mw.AuditLogger
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, cfg *config.Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		logger:      logger,
		services:    core.NewServices(pool, logger),
		pool:        pool,
		cfg:         cfg,
		auditLogger: mw.NewAuditLogger(pool, logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.pool))
		r.Use(s.auditLogger.Middleware)

		// Backup settings
		settings := handler.NewSettings(s.services.Settings)
		r.Get("/settings/backup", settings.Get)
		r.Put("/settings/backup", settings.Update)

		// File servers
		fileServer := handler.NewFileServer(s.services.FileServer)
		r.Get("/file-servers", fileServer.List)
		r.Post("/file-servers", fileServer.Create)
		r.Get("/file-servers/{id}", fileServer.Get)
		r.Put("/file-servers/{id}", fileServer.Update)
		r.Delete("/file-servers/{id}", fileServer.Delete)

		// File server routing overrides
		r.Get("/file-server-overrides/{scope}/{scopeID}", fileServer.ListOverrides)
		r.Put("/file-server-overrides/{scope}/{scopeID}", fileServer.SetOverride)
		r.Delete("/file-server-overrides/{scope}/{scopeID}", fileServer.DeleteOverride)

		// Tenants
		tenant := handler.NewTenant(s.services.Tenant)
		r.Get("/tenants", tenant.List)
		r.Post("/tenants", tenant.Create)
		r.Get("/tenants/{id}", tenant.Get)
		r.Put("/tenants/{id}", tenant.Update)
		r.Delete("/tenants/{id}", tenant.Delete)

		// Backups
		backup := handler.NewBackup(s.services.Vault, s.services.Tenant, transfer.NewInstaller())
		r.Get("/tenants/{tenantID}/backups", backup.List)
		r.Post("/tenants/{tenantID}/backups", backup.Store)
		r.Get("/tenants/{tenantID}/backups/{id}", backup.Get)
		r.Get("/tenants/{tenantID}/backups/{id}/download", backup.Download)
		r.Post("/tenants/{tenantID}/backups/{id}/restore", backup.Restore)
		r.Delete("/tenants/{tenantID}/backups/{id}", backup.Delete)
		r.Get("/tenants/{tenantID}/capacity", backup.Capacity)
		r.Get("/tenants/{tenantID}/backends", backup.Backends)

		// API keys
		apiKey := handler.NewAPIKey(s.services.APIKey)
		r.Get("/api-keys", apiKey.List)
		r.Post("/api-keys", apiKey.Create)
		r.Delete("/api-keys/{id}", apiKey.Revoke)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

// Close stops the background audit writer.
func (s *Server) Close() {
	s.auditLogger.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
