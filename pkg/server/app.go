package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "CoinSink/internal/domain/repository"
	"CoinSink/internal/usecase"
	"CoinSink/pkg/cache"
	"CoinSink/pkg/config"
	xhttp "CoinSink/pkg/http"
	pkgkafka "CoinSink/pkg/kafka"
	applogger "CoinSink/pkg/logger"
)

// App ties the collector, the optional bus consumer and the HTTP read API
// into one lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	collector *usecase.SnapshotCollector
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	store     drepo.SnapshotStore

	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	cache       cache.Service
	publisher   drepo.Publisher
}

// New creates an App. Consumer, kh and publisher are nil when the backend
// runs in direct mode.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	store drepo.SnapshotStore,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		store:     store,
	}
}

// SetHTTPHandler injects the HTTP read facade.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// SetCache hands the cache to the app so shutdown can close it.
func (a *App) SetCache(c cache.Service) { a.cache = c }

// SetPublisher hands the bus publisher to the app so shutdown can close it.
func (a *App) SetPublisher(p drepo.Publisher) { a.publisher = p }

// Run starts every component and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)

	go func() {
		if err := a.collector.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("collector error", applogger.Error(err))
		}
	}()
	a.log.Info("collector started",
		applogger.Strings("coins", a.cfg.Ingest.Coins),
		applogger.Duration("interval", a.cfg.Ingest.Interval))

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Error("store close error", applogger.Error(err))
		return err
	}

	a.log.Info("shutdown complete")
	return nil
}
