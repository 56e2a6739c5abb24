//go:build wireinject
// +build wireinject

package di

import (
	"CryptoRNN/pkg/config"
	"CryptoRNN/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideClickHouseClient,

		// Repositories
		ProvideCandleSource,
		ProvideRunRegistry,
		ProvideCheckpointStore,

		// Observers
		ProvideStatusTracker,
		ProvideProgressHub,

		// Use cases
		ProvideModelFactory,
		ProvideTrainer,
		ProvideDatasetBuilder,
		ProvideTrainingUseCase,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
