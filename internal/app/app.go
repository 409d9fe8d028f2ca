package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"rfmcli/internal/config"
	"rfmcli/internal/infrastructure"
	"rfmcli/internal/operations"
	"rfmcli/internal/services"
	handlers "rfmcli/internal/transport/http"
	"rfmcli/internal/validation"
	"rfmcli/pkg/contracts"
)

const AppName = "rfm"

// Application represents the main application container
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Report    *services.ReportService
	Health    *services.HealthService
	Router    http.Handler
	Server    *http.Server
}

// NewApplication creates an application for cfg. The configuration must
// already be validated.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tel, err := infrastructure.NewTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &Application{
		Config:    cfg,
		Logger:    logger,
		Telemetry: tel,
	}
	a.Report = services.NewReportService(nil, infrastructure.WithComponent(logger, "report"))
	a.Health = services.NewHealthService(contracts.Version, a.Report, logger)

	a.setupRouter()
	a.createServer()
	return a, nil
}

func (a *Application) setupRouter() {
	a.Router = handlers.NewRouter(handlers.RouterDeps{
		Report:  a.Report,
		Health:  a.Health,
		Metrics: a.Telemetry.Handler(),
		Tracer:  a.Telemetry.Tracer,
		Server:  a.Config.Server,
		Logger:  a.Logger,
	})
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Address(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// RunPipeline executes one pipeline run and, on success, serves its result
// through the report service. The run state is returned even on failure.
func (a *Application) RunPipeline(ctx context.Context) (*operations.RunState, error) {
	opts, err := operations.OptionsFromConfig(a.Config)
	if err != nil {
		return nil, err
	}

	pipeline, err := operations.NewPipeline(opts, a.Logger, a.Telemetry)
	if err != nil {
		return nil, err
	}

	state, err := pipeline.Execute(ctx)
	if err != nil {
		return state, err
	}
	a.Report.Load(state)
	return state, nil
}

// Serve serves the report API on ln until ctx is done, then shuts down
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Telemetry.RegisterRuntimeCollectors(); err != nil {
		a.Logger.WarnContext(ctx, "runtime metrics unavailable", slog.String("error", err.Error()))
	}

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "startup health check warnings", slog.String("warnings", err.Error()))
	}

	a.Logger.InfoContext(ctx, "report server started",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", ln.Addr().String()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})
	return g.Wait()
}

// Run listens on the configured address and serves until SIGINT or SIGTERM
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Stop gracefully stops the server and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down report server")

	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}
	if err := a.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close flushes traces and writes the metrics textfile
func (a *Application) Close(ctx context.Context) error {
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "telemetry shutdown failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// performStartupHealthCheck checks the served report and the output directory
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	if status := a.Health.HealthCheck(ctx); status.Status != "healthy" {
		warnings = append(warnings, "no pipeline result loaded")
	}
	if err := validation.NewFileValidator(a.Logger).ValidateOutputDirectory(a.Config.Output.Dir); err != nil {
		warnings = append(warnings, fmt.Sprintf("output directory not writable: %s", a.Config.Output.Dir))
	}

	if len(warnings) > 0 {
		return errors.New(strings.Join(warnings, "; "))
	}
	a.Logger.InfoContext(ctx, "startup health check passed")
	return nil
}
