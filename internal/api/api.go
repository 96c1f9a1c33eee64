// Package api provides HTTP handlers and the main API server logic for OrderFlow.
//
// It exposes RESTful endpoints for wizard sessions, company lookups and order
// submission. The API integrates with the wizard, store, backend and notify
// modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/VeriScreen/OrderFlow/internal/backend"
	"github.com/VeriScreen/OrderFlow/internal/cache"
	"github.com/VeriScreen/OrderFlow/internal/notify"
	"github.com/VeriScreen/OrderFlow/internal/store"
	"github.com/VeriScreen/OrderFlow/internal/wizard"
)

const (
	// DefaultAddr is the default listen address for the API server.
	DefaultAddr = ":8080"
	// DefaultReadHeaderTimeout bounds how long the server waits for request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
)

// Opts holds configuration options for the API server.
type Opts struct {
	// Addr is the listen address (e.g., ":8080").
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address for the API server.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server bundles the HTTP layer with its wizard orchestrator and store.
type Server struct {
	addr string
	st   store.Store
	orch *wizard.Orchestrator
}

// NewServer creates an API server around the given store and orchestrator.
func NewServer(st store.Store, orch *wizard.Orchestrator, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	slog.Debug("Creating API server", "addr", cfg.Addr)
	return &Server{addr: cfg.Addr, st: st, orch: orch}
}

// Handler returns the routing handler for the server. Exposed so tests can
// drive the API through httptest without binding a socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.sessionsHandler)
	mux.HandleFunc("/sessions/", s.sessionsHandler)
	mux.HandleFunc("/companies", s.companiesHandler)
	mux.HandleFunc("/orders", s.ordersHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Start begins serving HTTP requests. It blocks until the listener fails.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
	}
	slog.Info("OrderFlow API running", "addr", s.addr)
	return srv.ListenAndServe()
}

// buildStore selects a storage backend from the applied store options: no DSN
// means in-memory, otherwise the DSN type picks SQLite or PostgreSQL.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var cfg store.Opts
	for _, opt := range storeOpts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("Run: no database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	switch store.DetectDSNType(cfg.DSN) {
	case "postgres":
		slog.Info("Run: using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	default:
		slog.Info("Run: using SQLite store")
		return store.NewSQLiteStore(storeOpts...)
	}
}

// Run wires the full service together and serves the API. The notifier is
// optional: when Twilio credentials are absent the wizard still works, the
// scheduling link just is not mirrored over SMS.
func Run(storeOpts []store.Option, backendOpts []backend.Option, notifyOpts []notify.Option, cacheOpts []cache.Option, apiOpts []Option) error {
	st, err := buildStore(storeOpts)
	if err != nil {
		slog.Error("Run: failed to initialize store", "error", err)
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	client, err := backend.NewHTTPClient(backendOpts...)
	if err != nil {
		slog.Error("Run: failed to initialize lab backend client", "error", err)
		return fmt.Errorf("failed to initialize lab backend client: %w", err)
	}

	companies := cache.NewCompanyCache(cacheOpts...)

	var orchOpts []wizard.Option
	notifier, err := notify.NewTwilioService(notifyOpts...)
	if err != nil {
		slog.Warn("Run: SMS notifier disabled", "reason", err)
	} else {
		orchOpts = append(orchOpts, wizard.WithNotifier(notifier))
	}

	orch := wizard.NewOrchestrator(st, client, companies, orchOpts...)
	srv := NewServer(st, orch, apiOpts...)
	return srv.Start()
}
