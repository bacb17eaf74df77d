//go:build wireinject
// +build wireinject

package di

import (
	"FundSignal/pkg/config"
	"FundSignal/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideRedisCache,
		ProvideCache,
		ProvideJobQueue,

		// Data source
		ProvideHTTPClient,
		ProvideSourceLimiter,
		ProvideSeriesFetcher,
		ProvideFundDirectory,

		// Sinks and notification
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideSignalStore,
		ProvideNotifier,

		// Use cases and API
		ProvideAnalyzer,
		ProvideSignalsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
