//go:build wireinject
// +build wireinject

package di

import (
	"OracleDash/internal/usecase"
	"OracleDash/pkg/config"
	"OracleDash/pkg/server"

	"github.com/google/wire"
)

var dashboardSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideOracleClient,
	ProvideBroadcaster,
	ProvideSettings,
	ProvideDashboard,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		dashboardSet,

		// HTTP surface
		ProvideCycleLimiter,
		ProvideStream,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeDashboard wires only the dashboard, for one-shot CLI commands.
func InitializeDashboard(cfg *config.Config) (*usecase.Dashboard, func(), error) {
	wire.Build(dashboardSet)
	return nil, nil, nil
}
