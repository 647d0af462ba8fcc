// Package gateway provides a reusable CI events gateway that can be embedded
// into other Go applications.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/lei/actions-gateway/internal/api"
	"github.com/lei/actions-gateway/internal/config"
	"github.com/lei/actions-gateway/internal/service"
	"github.com/lei/actions-gateway/internal/store"
	"github.com/lei/actions-gateway/pkg/logger"
)

// Gateway represents a gateway instance that can be embedded in applications
type Gateway struct {
	config  *Config
	service *service.Service
	store   *store.EventStore
	router  http.Handler
	server  *http.Server
	logger  *logger.Logger
}

// Config holds the configuration for the Gateway
type Config struct {
	// Server configuration
	Server ServerConfig

	// Query API authentication
	Auth AuthConfig

	// Inbound webhook settings
	Webhook WebhookConfig

	// Retention window of the in-memory event store
	Retention RetentionConfig

	// Optional durable event log
	EventLog EventLogConfig

	// Template rule table; nil means the built-in defaults
	Templates *config.TemplateTable

	// DeployMarkers are the substrings marking deployment-tagged runs
	DeployMarkers []string

	// Logger configuration
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	APIKeys []APIKey
}

// APIKey represents an API key for authentication
type APIKey struct {
	Name string
	Key  string
}

// WebhookConfig holds inbound webhook settings. An empty Secret disables
// signature verification.
type WebhookConfig struct {
	Secret string
}

// RetentionConfig bounds the in-memory event history
type RetentionConfig struct {
	MaxEvents int
	MaxAge    time.Duration
}

// EventLogConfig selects the optional durable event log
type EventLogConfig struct {
	Driver string // "bbolt" or "none"
	Path   string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

// New creates a new Gateway instance with the provided configuration
func New(cfg *Config) (*Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// Initialize logger
	appLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	// Initialize the event store and optional durable log
	eventStore := store.New(cfg.Retention.MaxEvents, cfg.Retention.MaxAge)
	eventLog, err := store.NewEventLog(cfg.EventLog.Driver, cfg.EventLog.Path)
	if err != nil {
		return nil, fmt.Errorf("initialize event log: %w", err)
	}
	if eventLog != nil {
		appLogger.Info("initialized durable event log",
			"driver", cfg.EventLog.Driver,
			"path", cfg.EventLog.Path)
	}

	table := cfg.Templates
	if table == nil {
		table = config.DefaultTemplateTable()
	}

	// Initialize service layer
	svc := service.NewService(eventStore, eventLog, table, cfg.DeployMarkers, appLogger)

	// Initialize API layer
	handlers := api.NewHandlers(svc, cfg.Webhook.Secret)

	configAPIKeys := make([]config.APIKey, len(cfg.Auth.APIKeys))
	for i, key := range cfg.Auth.APIKeys {
		configAPIKeys[i] = config.APIKey{
			Name: key.Name,
			Key:  key.Key,
		}
	}
	authMiddleware := api.NewAuthMiddleware(configAPIKeys)
	loggingMiddleware := api.NewLoggingMiddleware(appLogger)
	router := api.NewRouter(handlers, authMiddleware, loggingMiddleware)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Gateway{
		config:  cfg,
		service: svc,
		store:   eventStore,
		router:  router,
		server:  srv,
		logger:  appLogger,
	}, nil
}

// Start starts the HTTP server after replaying any durable event log.
// This is a blocking call that will run until the context is canceled or an
// error occurs.
func (g *Gateway) Start(ctx context.Context) error {
	if err := g.service.ReplayEventLog(ctx); err != nil {
		return err
	}

	serverErrors := make(chan error, 1)

	go func() {
		g.logger.Info("starting http server", "port", g.config.Server.Port)
		serverErrors <- g.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		g.logger.Info("shutdown signal received")

		// Graceful shutdown with 30s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := g.server.Shutdown(shutdownCtx); err != nil {
			g.server.Close()
			g.service.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		if err := g.service.Close(); err != nil {
			g.logger.Warn("closing event log failed", "error", err)
		}
		g.logger.Info("server stopped gracefully")
		return nil
	}
}

// Handler returns the http.Handler for the gateway.
// Use this if you want to integrate the gateway into an existing HTTP server.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

// Service returns the underlying service layer.
// Use this for direct programmatic access to gateway functionality.
func (g *Gateway) Service() *service.Service {
	return g.service
}

// NewFromFile creates a Gateway from a yaml config file, with environment
// variables expanded in the file and an optional template table alongside.
// An empty path falls back to defaults plus environment overrides for the
// webhook secret.
func NewFromFile(path string) (*Gateway, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
		cfg.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	} else {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	table, err := config.LoadTemplateTable(cfg.Templates.File)
	if err != nil {
		return nil, fmt.Errorf("load template table: %w", err)
	}

	gwAPIKeys := make([]APIKey, len(cfg.Auth.APIKeys))
	for i, key := range cfg.Auth.APIKeys {
		gwAPIKeys[i] = APIKey{
			Name: key.Name,
			Key:  key.Key,
		}
	}

	return New(&Config{
		Server: ServerConfig{
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		Auth: AuthConfig{
			APIKeys: gwAPIKeys,
		},
		Webhook: WebhookConfig{
			Secret: cfg.Webhook.Secret,
		},
		Retention: RetentionConfig{
			MaxEvents: cfg.Retention.MaxEvents,
			MaxAge:    cfg.Retention.MaxAge,
		},
		EventLog: EventLogConfig{
			Driver: cfg.EventLog.Driver,
			Path:   cfg.EventLog.Path,
		},
		Templates:     table,
		DeployMarkers: cfg.Templates.DeployMarkers,
		Logging: LoggingConfig{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
		},
	})
}
