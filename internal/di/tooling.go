package di

import (
	"VitalPulse/internal/domain/repository"
	"VitalPulse/internal/usecase"
	"VitalPulse/pkg/config"
	applogger "VitalPulse/pkg/logger"
)

// Tooling is the engine plus the clients it holds open, for one-shot commands.
type Tooling struct {
	Engine  *usecase.Engine
	Records repository.RecordsStore
	Logger  *applogger.Logger

	cleanup func()
}

func ProvideTooling(engine *usecase.Engine, records repository.RecordsStore, l *applogger.Logger) *Tooling {
	return &Tooling{Engine: engine, Records: records, Logger: l}
}

// OpenTooling wires the engine and ties client cleanup to Close.
func OpenTooling(cfg *config.Config) (*Tooling, error) {
	t, cleanup, err := InitializeTooling(cfg)
	if err != nil {
		return nil, err
	}
	t.cleanup = cleanup
	return t, nil
}

// Close releases every client, newest first.
func (t *Tooling) Close() {
	if t.cleanup != nil {
		t.cleanup()
		t.cleanup = nil
	}
}
