package di

import (
	"fmt"

	"OracleDash/internal/domain/repository"
	"OracleDash/internal/handler/api"
	"OracleDash/internal/service/notify"
	"OracleDash/internal/service/oracle"
	"OracleDash/internal/service/ratelimit"
	"OracleDash/internal/usecase"
	"OracleDash/pkg/config"
	xhttp "OracleDash/pkg/http"
	applogger "OracleDash/pkg/logger"
	"OracleDash/pkg/metrics"
	"OracleDash/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder. With metrics
// disabled the dashboard falls back to a no-op recorder.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(nil)
}

// ProvideOracleClient creates the forecasting backend client.
func ProvideOracleClient(cfg *config.Config) repository.OracleAPI {
	return oracle.New(cfg.Oracle.BaseURL, cfg.Oracle.Timeout)
}

// ProvideBroadcaster creates the cycle notifier selected by notify.backend.
// The cleanup closes its connections.
func ProvideBroadcaster(cfg *config.Config, l *applogger.Logger) (repository.Broadcaster, func(), error) {
	id := notify.NewInstanceID()
	bus, err := notify.New(cfg, id, l)
	if err != nil {
		return nil, nil, err
	}
	l.Info("notify: backend ready",
		applogger.String("backend", bus.Backend()),
		applogger.String("instance", id),
	)
	cleanup := func() {
		if err := bus.Close(); err != nil {
			l.Warn("notify: close error", applogger.Error(err))
		}
	}
	return bus, cleanup, nil
}

// ProvideCycleLimiter bounds manual cycle triggers per client.
func ProvideCycleLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Cycle.BurstLimit, cfg.Cycle.RefillPerSec)
}

// ProvideSettings maps the polling section onto dashboard settings.
func ProvideSettings(cfg *config.Config) usecase.Settings {
	set := usecase.DefaultSettings()
	set.Signals = cfg.Polling.Signals
	set.Predictions = cfg.Polling.Predictions
	set.Causal = cfg.Polling.Causal
	set.Learning = cfg.Polling.Learning
	set.Scheduler = cfg.Polling.Scheduler
	set.Sources = cfg.Polling.Sources
	set.HistoryLimit = cfg.Oracle.HistoryLimit
	set.LogLimit = cfg.Oracle.LogLimit
	return set
}

// ProvideDashboard creates the dashboard use case.
func ProvideDashboard(
	api repository.OracleAPI,
	m repository.Metrics,
	bus repository.Broadcaster,
	l *applogger.Logger,
	set usecase.Settings,
) *usecase.Dashboard {
	return usecase.NewDashboard(api, m, bus, l, set)
}

// ProvideStream creates the websocket panel stream.
func ProvideStream(l *applogger.Logger, dash *usecase.Dashboard) *api.Stream {
	return api.NewStream(l, dash)
}

// ProvideDashboardHandler creates the Echo handler for the dashboard API.
func ProvideDashboardHandler(
	l *applogger.Logger,
	dash *usecase.Dashboard,
	limiter *ratelimit.Limiter,
	stream *api.Stream,
) xhttp.Handler {
	return api.NewDashboardHandler(l, dash, limiter, stream)
}

// ProvideHTTPServer creates the Echo server with the configured timeouts.
func ProvideHTTPServer(cfg *config.Config, h xhttp.Handler, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(l),
	)
}

// ProvideApp creates the application server.
func ProvideApp(cfg *config.Config, l *applogger.Logger, dash *usecase.Dashboard, srv *xhttp.Server) *server.App {
	return server.New(cfg, l, dash, srv)
}
