package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/portmail/portmail/internal/app"
	"github.com/portmail/portmail/internal/config"
	"github.com/portmail/portmail/internal/httpapi"
	"github.com/portmail/portmail/pkg/logger"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	switch cmd := os.Args[1]; cmd {
	case "serve":
		os.Exit(run(runServe))
	case "sweep":
		os.Exit(run(runSweep))
	case "migrate":
		os.Exit(run(runMigrate))
	case "version":
		fmt.Printf("portmail %s (%s)\n", version, commit)
		os.Exit(exitSuccess)
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`portmail - scheduled email dispatcher for ship agency documents

Usage:
  portmail <command>

Commands:
  serve     Start the HTTP API, the scheduled sweep and the job workers
  sweep     Run one sweep now and print the report as JSON
  migrate   Apply database migrations and exit
  version   Print version information

Configuration is read from the environment and an optional .env file.`)
}

type command func(ctx context.Context, cfg config.Config, log *slog.Logger) int

// run loads configuration, sets up logging and runs cmd until it returns or
// the process receives SIGINT or SIGTERM.
func run(cmd command) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return exitInvalidConfig
	}

	log, flush := logger.New(cfg.Log, httpapi.RequestIDExtractor())
	defer flush()
	log = log.With(slog.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cmd(ctx, cfg, log)
}

func runServe(ctx context.Context, cfg config.Config, log *slog.Logger) int {
	if err := cfg.ValidateServe(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		return exitInvalidConfig
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", slog.String("error", err.Error()))
		return exitRuntimeError
	}

	code := exitSuccess
	if err := a.Serve(ctx); err != nil {
		log.Error("server stopped with error", slog.String("error", err.Error()))
		code = exitRuntimeError
	}

	if err := closeApp(a, cfg); err != nil {
		code = exitRuntimeError
	}
	log.Info("shutdown completed")
	return code
}

func runSweep(ctx context.Context, cfg config.Config, log *slog.Logger) int {
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		return exitInvalidConfig
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", slog.String("error", err.Error()))
		return exitRuntimeError
	}
	defer func() { _ = closeApp(a, cfg) }()

	report, err := a.Sweep(ctx)
	if err != nil {
		log.Error("sweep failed", slog.String("error", err.Error()))
		return exitRuntimeError
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Error("write report", slog.String("error", err.Error()))
		return exitRuntimeError
	}
	return exitSuccess
}

func runMigrate(ctx context.Context, cfg config.Config, log *slog.Logger) int {
	if cfg.DB.ConnectionString == "" {
		log.Error("invalid configuration", slog.String("error", "DATABASE_CONN_URL is required"))
		return exitInvalidConfig
	}
	if err := app.Migrate(ctx, cfg, log); err != nil {
		log.Error("migration failed", slog.String("error", err.Error()))
		return exitRuntimeError
	}
	return exitSuccess
}

func closeApp(a *app.App, cfg config.Config) error {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Close(ctx)
}
