package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"OracleDash/internal/usecase"
	"OracleDash/pkg/config"
	xhttp "OracleDash/pkg/http"
	applogger "OracleDash/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	dash       *usecase.Dashboard
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, dash *usecase.Dashboard, srv *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l, dash: dash, httpServer: srv}
}

// Run starts polling and the HTTP server, then blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with an explicit lifetime: it returns after ctx is done
// and shutdown has completed.
func (a *App) RunContext(ctx context.Context) error {
	a.dash.Start(ctx)
	a.log.Info("dashboard polling started",
		applogger.String("oracle", a.cfg.Oracle.BaseURL),
		applogger.String("env", a.cfg.Environment),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.dash.Stop()
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	// HTTP first so no request lands on a stopped dashboard.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	err := a.httpServer.Stop(shutdownCtx)
	if err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.dash.Stop()

	a.log.Info("shutdown complete")
	return err
}
