package app

import (
	"context"
	"fmt"
	"log/slog"
)

// Init initializes all runtime resources. It is idempotent. A failure
// releases whatever was acquired before it.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, metrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	namer := buildNamer(a.cfg, a.logger)
	graph, err := loadGraph(a.cfg, a.logger, namer)
	if err != nil {
		return err
	}

	opts := engineOptions(a.cfg, namer, metrics)
	if a.cfg.Database.Enabled() {
		a.logger.Info("connecting to database",
			slog.String("host", a.cfg.Database.Host),
			slog.Int("port", a.cfg.Database.Port),
			slog.Bool("dsn_present", a.cfg.Database.ConnectionString != ""),
		)
		db, dbStatsReg, err := connectDB(a.cfg, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		cleanup.push("database", func(_ context.Context) error {
			if dbStatsReg != nil {
				if err := dbStatsReg.Unregister(); err != nil {
					a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
				}
			}
			return db.Close()
		})
		if err := configureDatabase(ctx, a.cfg, a.logger, db); err != nil {
			return fmt.Errorf("failed to verify database connection: %w", err)
		}
		opts = append(opts, withDB(db))

		a.stateMu.Lock()
		a.db = db
		a.dbStatsReg = dbStatsReg
		a.stateMu.Unlock()
	} else {
		a.logger.Info("no database configured, running in plan-only mode")
	}

	eng := buildEngine(graph, opts)

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.tracerProvider = tracerProvider
	a.metrics = metrics
	a.graph = graph
	a.engine = eng
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}
