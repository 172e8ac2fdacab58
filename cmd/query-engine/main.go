package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"query-engine/internal/app"
	"query-engine/internal/config"
	"query-engine/internal/engine"
)

var (
	// Version is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
	Commit  = "none"
)

// options are the flags that describe one request rather than configuration.
type options struct {
	document      string
	operationName string
	variables     string
	execute       bool
	metricsOut    string
	version       bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		slog.Error("query-engine error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("query-engine", pflag.ContinueOnError)
	config.DefineFlags(fs)
	opts := defineRequestFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if opts.version {
		fmt.Fprintf(stdout, "query-engine %s (%s)\n", Version, Commit)
		return nil
	}

	cfg, err := config.Load(fs)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.Observability.ServiceVersion == "" {
		cfg.Observability.ServiceVersion = Version
	}

	validationResult := cfg.Validate()
	for _, warn := range validationResult.Warnings {
		slog.Warn("configuration warning",
			slog.String("field", warn.Field),
			slog.String("message", warn.Message),
			slog.String("hint", warn.Hint),
		)
	}
	if validationResult.HasErrors() {
		for _, err := range validationResult.Errors {
			slog.Error("configuration error",
				slog.String("field", err.Field),
				slog.String("message", err.Message),
				slog.String("hint", err.Hint),
			)
		}
		return fmt.Errorf("configuration validation failed")
	}

	req, err := buildRequest(opts, cfg.Engine.SchemaFile)
	if err != nil {
		return err
	}

	logger, loggerProvider, err := app.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		if loggerProvider != nil {
			_ = loggerProvider.Shutdown(context.Background(), logger.Logger)
		}
		return err
	}
	a.AttachLoggerProvider(loggerProvider)
	defer func() { _ = a.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Init(ctx); err != nil {
		return err
	}

	report, runErr := a.Run(ctx, req, opts.execute)
	if opts.metricsOut != "" {
		if err := writeMetrics(a, opts.metricsOut); err != nil {
			logger.Warn("failed to write metrics", slog.String("error", err.Error()))
		}
	}
	if runErr != nil {
		return runErr
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func defineRequestFlags(fs *pflag.FlagSet) *options {
	opts := &options{}
	fs.StringVarP(&opts.document, "document", "d", "", "GraphQL document file (use @- for stdin)")
	fs.StringVar(&opts.operationName, "operation-name", "", "Operation to run when the document defines several")
	fs.StringVar(&opts.variables, "variables", "", "Request variables as a JSON object")
	fs.BoolVarP(&opts.execute, "execute", "x", false, "Execute mutations against the database instead of only planning")
	fs.StringVar(&opts.metricsOut, "metrics-out", "", "Write Prometheus text metrics to this file after the run (use - for stdout)")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")
	return opts
}

func buildRequest(opts *options, schemaFile string) (engine.Request, error) {
	if opts.document == "" {
		return engine.Request{}, fmt.Errorf("--document is required")
	}
	if opts.document == "@-" && schemaFile == "@-" {
		return engine.Request{}, fmt.Errorf("--document and engine.schema_file cannot both read from stdin")
	}

	doc, err := config.ReadSource(opts.document)
	if err != nil {
		return engine.Request{}, fmt.Errorf("failed to read document: %w", err)
	}

	req := engine.Request{Document: string(doc), OperationName: opts.operationName}
	if opts.variables != "" {
		if err := json.Unmarshal([]byte(opts.variables), &req.Variables); err != nil {
			return engine.Request{}, fmt.Errorf("--variables must be a JSON object: %w", err)
		}
	}
	return req, nil
}

func writeMetrics(a *app.App, path string) error {
	mp := a.MeterProvider()
	if mp == nil {
		return fmt.Errorf("metrics are disabled; set observability.metrics_enabled")
	}
	if path == "-" {
		return mp.WriteText(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mp.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
