package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rfq/internal/config"
	"rfq/internal/controller"
	"rfq/internal/logging"
	"rfq/internal/repository"
	"rfq/internal/router"
	"rfq/internal/service"

	log "github.com/sirupsen/logrus"
)

type App struct {
	repo       *repository.Repository
	service    *service.Service
	controller *controller.Controller
	stopSig    chan os.Signal
	cfg        *config.Config

	Done chan struct{}
}

type option func(*App)

func WithConfig(cfg *config.Config) option {
	return func(app *App) {
		app.cfg = cfg
	}
}

func NewApp(opts ...option) (*App, error) {
	var err error

	app := &App{
		stopSig: make(chan os.Signal, 2),
		Done:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.cfg == nil {
		cfg, err := config.NewConfig()
		if err != nil {
			return nil, err
		}
		app.cfg = cfg
	}

	err = logging.Setup(app.cfg.LogLevel, app.cfg.LogFormat, nil)
	if err != nil {
		return nil, err
	}

	app.repo, err = repository.NewRepository(nil, &app.cfg.PostgresConfig)
	if err != nil {
		return nil, err
	}

	app.service = service.NewService(app.repo, service.WithSweepBatchSize(app.cfg.SweepBatchSize))
	app.controller = controller.NewController(app.service)

	return app, nil
}

func (app *App) Repository() *repository.Repository {
	return app.repo
}

func (app *App) Config() *config.Config {
	return app.cfg
}

// Sweep runs one expiry pass with the wall clock.
func (app *App) Sweep(ctx context.Context) (int, error) {
	return app.service.SweepExpired(ctx, time.Now())
}

func (app *App) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		signal.Notify(app.stopSig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		sig := <-app.stopSig
		log.WithField("signal", sig.String()).Info("Received signal")
		cancel()
	}()

	server := http.Server{
		Addr:         app.cfg.ServerAddress,
		Handler:      router.NewRouter(app.controller),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Http server error")
			cancel()
		}
	}()

	sweeperDone := make(chan struct{})
	go func() {
		defer close(sweeperDone)
		app.runSweeper(ctx)
	}()

	log.Infof("Server started at %s, listening for connections...", app.cfg.ServerAddress)
	<-ctx.Done()

	timeout, tcancel := context.WithTimeout(context.Background(), time.Second*10)
	defer tcancel()
	log.Info("Shutting down http server...")
	err := server.Shutdown(timeout)
	if err != nil {
		log.WithError(err).Warn("Http server shutdown error")
	}

	<-sweeperDone

	log.Info("Closing repository...")
	err = app.repo.Close()
	if err != nil {
		log.WithError(err).Error("Repository closing error")
	}

	close(app.Done)
	log.Info("Exiting app.")
}

// runSweeper expires stale RFQs every SweepInterval until ctx is done.
// A zero interval disables it.
func (app *App) runSweeper(ctx context.Context) {
	if app.cfg.SweepInterval <= 0 {
		log.Info("Periodic sweep disabled")
		return
	}

	ticker := time.NewTicker(app.cfg.SweepInterval)
	defer ticker.Stop()

	entry := log.WithField("component", "sweeper")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := app.service.SweepExpired(logging.WithLogger(ctx, entry), time.Now())
			if err != nil && ctx.Err() == nil {
				entry.WithError(err).Error("Sweep failed")
			}
		}
	}
}
