// Package api is the HTTP surface of the journal.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	handler "github.com/newthinker/zella/internal/api/handler/api"
	"github.com/newthinker/zella/internal/api/middleware"
	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/api/stream"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/journal"
	"github.com/newthinker/zella/internal/metrics"
)

// Server represents the HTTP server of the journal.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     *mux.Router
	deps       Dependencies
}

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Dependencies holds the collaborators served over HTTP. Coach fields may
// be nil when no LLM provider is configured; Alerts, Hub and Metrics may
// be nil.
type Dependencies struct {
	Journal  *journal.Service
	Vault    *auth.Vault
	Resolver *auth.Resolver
	Grader   handler.Grader
	Auditor  handler.Auditor
	Chat     handler.Chat
	Runner   handler.Runner
	Alerts   handler.AlertFeed
	Hub      *stream.Hub
	Metrics  *metrics.Registry
	Version  string
}

// NewServer creates the HTTP server and its routes.
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.Journal == nil || deps.Vault == nil || deps.Resolver == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("journal, vault and resolver are required"))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	s := &Server{
		logger: logger,
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes(cfg)

	var h http.Handler = s.router
	h = metrics.LoggingMiddleware(logger, "/api/v1/health", "/metrics")(h)
	h = middleware.Recovery(logger)(h)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	if deps.Hub != nil {
		deps.Journal.Subscribe(deps.Hub.Publish)
	}
	return s, nil
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(cfg Config) {
	d := s.deps
	authn := middleware.Authenticate(d.Resolver)

	s.router.Use(metrics.HTTPMiddleware(d.Metrics))
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNoData, fmt.Errorf("no route for %s", r.URL.Path)))
	})

	if d.Metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	if d.Hub != nil {
		s.router.Handle("/ws", authn(stream.NewHandler(d.Hub, cfg.AllowedOrigins))).Methods(http.MethodGet)
	}

	api := s.router.PathPrefix("/api/v1").Subrouter()

	health := handler.NewHealthHandler(d.Version, d.Journal)
	authH := handler.NewAuthHandler(d.Vault)
	api.HandleFunc("/health", health.Health).Methods(http.MethodGet)
	api.HandleFunc("/auth/login", authH.Login).Methods(http.MethodPost)

	secured := api.NewRoute().Subrouter()
	secured.Use(authn)

	admin := secured.NewRoute().Subrouter()
	admin.Use(middleware.RequireAdmin)
	admin.HandleFunc("/auth/logout", authH.Logout).Methods(http.MethodPost)
	admin.HandleFunc("/auth/password", authH.ChangePassword).Methods(http.MethodPost)

	secured.HandleFunc("/auth/whoami", whoami).Methods(http.MethodGet)

	trades := handler.NewTradeHandler(d.Journal)
	secured.HandleFunc("/trades", trades.List).Methods(http.MethodGet)
	secured.HandleFunc("/trades", trades.Create).Methods(http.MethodPost)
	secured.HandleFunc("/trades/import", trades.Import).Methods(http.MethodPost)
	secured.HandleFunc("/trades/{id}", trades.Get).Methods(http.MethodGet)
	secured.HandleFunc("/trades/{id}", trades.Delete).Methods(http.MethodDelete)

	analyticsH := handler.NewAnalyticsHandler(d.Journal)
	secured.HandleFunc("/analytics/report", analyticsH.Report).Methods(http.MethodGet)
	secured.HandleFunc("/analytics/calendar", analyticsH.Calendar).Methods(http.MethodGet)
	secured.HandleFunc("/analytics/overtrading", analyticsH.Overtrading).Methods(http.MethodGet)
	secured.HandleFunc("/analytics/{view}", analyticsH.View).Methods(http.MethodGet)

	settingsH := handler.NewSettingsHandler(d.Journal)
	secured.HandleFunc("/settings/sessions", settingsH.Sessions).Methods(http.MethodGet)
	secured.HandleFunc("/settings/sessions", settingsH.UpdateSessions).Methods(http.MethodPut)
	secured.HandleFunc("/accounts", settingsH.Accounts).Methods(http.MethodGet)

	if d.Alerts != nil {
		alertsH := handler.NewAlertHandler(d.Alerts)
		secured.HandleFunc("/alerts", alertsH.Recent).Methods(http.MethodGet)
		secured.HandleFunc("/alerts/rules", alertsH.Rules).Methods(http.MethodGet)
	}

	if d.Runner == nil || d.Grader == nil || d.Auditor == nil || d.Chat == nil {
		secured.PathPrefix("/coach").HandlerFunc(coachUnavailable)
		secured.PathPrefix("/jobs").HandlerFunc(coachUnavailable)
		return
	}
	coachH := handler.NewCoachHandler(d.Journal, d.Grader, d.Auditor, d.Chat, d.Runner)
	secured.HandleFunc("/coach/grade", coachH.Grade).Methods(http.MethodPost)
	secured.HandleFunc("/coach/insights", coachH.Insights).Methods(http.MethodPost)
	secured.HandleFunc("/coach/chat", coachH.Chat).Methods(http.MethodPost)
	secured.HandleFunc("/coach/chat", coachH.ChatHistory).Methods(http.MethodGet)
	secured.HandleFunc("/coach/chat", coachH.ResetChat).Methods(http.MethodDelete)
	secured.HandleFunc("/jobs", coachH.Jobs).Methods(http.MethodGet)
	secured.HandleFunc("/jobs/{id}", coachH.Job).Methods(http.MethodGet)
}

func whoami(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		response.Fail(w, core.ErrUnauthorized)
		return
	}
	response.JSON(w, http.StatusOK, p)
}

func coachUnavailable(w http.ResponseWriter, r *http.Request) {
	response.Fail(w, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no LLM provider configured")))
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
