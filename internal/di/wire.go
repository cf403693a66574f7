//go:build wireinject
// +build wireinject

package di

import (
	"VitalPulse/pkg/config"
	"VitalPulse/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideRedisCache,
	ProvidePostgresClient,
	ProvideClickHouseClient,
)

var engineSet = wire.NewSet(
	ProvideBaselineRepository,
	ProvideRecordsStore,
	ProvideClassifier,
	ProvideDetector,
	ProvideBaselineUseCase,
	ProvideSnapshotBuilder,
	ProvideEngine,
)

// InitializeApp wires up all dependencies and returns the application.
// The cleanup closes every client opened on the way, newest first.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		infraSet,
		engineSet,

		ProvideKafkaProducer,
		ProvideSnapshotPublisher,
		ProvideSnapshotCache,
		ProvideJobQueue,
		ProvideSnapshotService,

		ProvideRateLimiter,
		ProvideHealthHandler,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		ProvideApp,
	)
	return &server.App{}, nil, nil
}

// InitializeTooling wires the engine alone, for the operator CLI.
func InitializeTooling(cfg *config.Config) (*Tooling, func(), error) {
	wire.Build(
		infraSet,
		engineSet,
		ProvideTooling,
	)
	return &Tooling{}, nil, nil
}
