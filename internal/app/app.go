// Package app wires configuration, telemetry, the database and the schema
// graph into a ready-to-use query engine and releases them in reverse order.
package app

import (
	"database/sql"
	"fmt"
	"sync"

	"query-engine/internal/config"
	"query-engine/internal/engine"
	"query-engine/internal/logging"
	"query-engine/internal/observability"
	"query-engine/internal/schema"
)

// App owns the runtime resources of one query-engine process.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider
	meterProvider  *observability.MeterProvider
	tracerProvider *observability.TracerProvider
	metrics        *observability.EngineMetrics

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }

	graph  *schema.Graph
	engine *engine.Engine

	cleanup cleanupStack

	stateMu     sync.Mutex
	initialized bool

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &App{cfg: cfg, logger: logger}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Engine returns the engine built by Init, or nil before Init.
func (a *App) Engine() *engine.Engine {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.engine
}

// MeterProvider returns the metrics provider, or nil when metrics are disabled.
func (a *App) MeterProvider() *observability.MeterProvider {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.meterProvider
}
