//go:build wireinject
// +build wireinject

package di

import (
	"CoinSink/pkg/config"
	"CoinSink/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideRawStore,
		ProvideSnapshotRepository,
		ProvideSnapshotStore,
		ProvideSnapshotReader,
		ProvidePublisher,
		ProvideMarketFetcher,

		// Use cases
		ProvideSnapshotLoader,
		ProvideSnapshotPipeline,
		ProvideSnapshotCollector,
		ProvideSnapshotQuery,
		ProvideKafkaSnapshotsHandler,

		// HTTP and application server
		ProvideHTTPHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
