package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	xhttp "VitalPulse/pkg/http"
	pkgkafka "VitalPulse/pkg/kafka"
	applogger "VitalPulse/pkg/logger"
	"VitalPulse/pkg/queue"
)

// App owns the long-running parts of the service: the HTTP server, the
// observations consumer and the snapshot job workers. Consumer and queue are
// optional.
type App struct {
	l               *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	jobs            *queue.RedisQueue
	shutdownTimeout time.Duration
}

// New creates a new App instance with all dependencies.
func New(l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, jobs *queue.RedisQueue, shutdownTimeout time.Duration) *App {
	if l == nil {
		l = applogger.Nop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &App{
		l:               l,
		httpServer:      httpServer,
		consumer:        consumer,
		jobs:            jobs,
		shutdownTimeout: shutdownTimeout,
	}
}

// HTTP returns the HTTP server.
func (a *App) HTTP() *xhttp.Server { return a.httpServer }

// Run starts every component and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(); err != nil {
		a.shutdown()
		return err
	}
	<-ctx.Done()
	a.l.Info("shutdown signal received")
	a.shutdown()
	return nil
}

func (a *App) start() error {
	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			return fmt.Errorf("start snapshot jobs: %w", err)
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}
	if a.httpServer == nil {
		return errors.New("http server is not configured")
	}
	return a.httpServer.Start()
}

// shutdown stops intake first, then workers. Clients belong to the caller.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			a.l.Warn("snapshot jobs stop error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
}
