package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AppProvider interface {
	Run() error
	Serve() func() error
	Stop(context.Context, context.Context) func() error
}

type App struct {
	logger         *zap.Logger
	config         *Config
	server         *http.Server
	cleanups       []func()
	closers        []func() error
	queueConsumers []func(context.Context) error
}

// NewApp provides an instance of App.
func NewApp() (AppProvider, error) {
	config, err := LoadAndInitConfigs(GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	// ensure the logs folder exists and setup the logging module.
	if err = os.MkdirAll(config.LogFolder, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create logging folder: %s", err)
	}
	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))

	app := &App{
		logger: logger,
		config: config,
		cleanups: []func(){
			func() {
				if ferr := flusher(); ferr != nil {
					fmt.Println("error during flushing of logs: ", ferr)
				}
			},
			func() {
				if cerr := logWriter.Close(); cerr != nil {
					fmt.Println("error during closing of log file: ", cerr)
				}
			},
		},
	}

	store, queue, err := app.setupStores()
	if err != nil {
		app.Close()
		app.Clean()
		return nil, err
	}

	bookService := NewBookService(logger, config, store, queue)
	apiService := NewAPIHandler(
		logger,
		config,
		&Statistics{
			version:   config.GitTag,
			container: IsAppRunningInDocker(),
			started:   clock.Now(),
			runtime:   runtime.Version(),
			platform:  runtime.GOOS + "/" + runtime.GOARCH,
		},
		clock,
		NewIDsHandler(),
		bookService,
	)

	// Use git commit in case the tag is not set.
	if config.GitTag == "" {
		apiService.stats.version = config.GitCommit
	}

	middlewaresPublic, middlewaresOps := apiService.MiddlewaresStacks()
	router := apiService.SetupRoutes(httprouter.New(),
		&MiddlewareMap{
			public: middlewaresPublic.Chain,
			ops:    middlewaresOps.Chain,
		},
	)
	routerWithTimeout := http.TimeoutHandler(
		router,
		config.Server.RequestTimeout,
		"Timeout. Processing taking too long. Please reach out to support.")

	app.server = &http.Server{
		Addr:           fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler:        routerWithTimeout,
		ReadTimeout:    config.Server.ReadTimeout,
		WriteTimeout:   config.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // Max headers size : 1MB
	}
	return app, nil
}

// setupStores connects the primary book store selected by the configuration
// and, when replication is enabled, the redis queue plus its boltdb consumer.
func (app *App) setupStores() (BookStore, Queuer, error) {
	var store BookStore
	var redisClient *redis.Client
	var err error

	getRedisClient := func() (*redis.Client, error) {
		if redisClient != nil {
			return redisClient, nil
		}
		client, err := GetRedisClient(app.config)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis server: %s", err)
		}
		redisClient = client
		app.closers = append(app.closers, client.Close)
		return client, nil
	}

	switch app.config.Store.Driver {
	case StoreRedis:
		client, err := getRedisClient()
		if err != nil {
			return nil, nil, err
		}
		store = NewRedisBookStore(app.logger, client)

	case StoreBoltDB:
		db, err := GetBoltDBClient(&app.config.BoltDB)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open boltdb store: %s", err)
		}
		app.closers = append(app.closers, db.Close)
		store = NewBoltBookStore(app.logger, &app.config.BoltDB, db)

	case StorePostgres:
		db, err := GetPostgresClient(&app.config.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres server: %s", err)
		}
		app.closers = append(app.closers, db.Close)
		pgStore := NewPostgresBookStore(app.logger, db, app.config.Postgres.TableName)
		if m, ok := pgStore.(interface{ Migrate(context.Context) error }); ok {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err = m.Migrate(ctx)
			cancel()
			if err != nil {
				return nil, nil, err
			}
		}
		store = pgStore

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", app.config.Store.Driver)
	}

	if !app.config.Store.Replicate {
		return store, nil, nil
	}

	client, err := getRedisClient()
	if err != nil {
		return nil, nil, err
	}
	db, err := GetBoltDBClient(&app.config.BoltDB)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open boltdb replica: %s", err)
	}
	app.closers = append(app.closers, db.Close)

	queue := NewRedisQueue(client)
	consumer := NewReplicaConsumer(app.logger, queue, NewBoltBookStore(app.logger, &app.config.BoltDB, db))
	app.queueConsumers = append(app.queueConsumers, func(ctx context.Context) error {
		return consumer.Consume(ctx, CreateQueue, UpdateQueue, DeleteQueue)
	})
	return store, queue, nil
}

// Run starts the api web server and a goroutine which is responsible to stop it.
func (app *App) Run() error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(app.ConsumeQueues(gCtx, g))
	g.Go(app.Serve())
	g.Go(app.Stop(nCtx, gCtx))

	err := g.Wait()
	app.logger.Info("api server stopped",
		zap.String("app.host", app.config.Server.Host),
		zap.String("app.port", app.config.Server.Port),
		zap.Error(err),
	)
	return err
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		f()
	}
}

// Close releases the stores and queue clients.
func (app *App) Close() {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("failed to close stores", zap.Error(err))
	}
}

// Serve starts the api web server. It returned error
// will be caught by the errorgroup.
func (app *App) Serve() func() error {
	return func() error {
		app.logger.Info("api server starting",
			zap.String("app.host", app.config.Server.Host),
			zap.String("app.port", app.config.Server.Port),
			zap.String("app.store", app.config.Store.Driver),
			zap.Bool("app.replicate", app.config.Store.Replicate),
		)
		err := app.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return err
	}
}

// Stop listens for the group context and triggers the server graceful shutdown.
// It states the reason of its call. We proceed with a brutal shutdown if the
// the graceful did not complete successfully. We explicitly return `nil` to
// allow the errorgroup catches only the `Serve` method result.
func (app *App) Stop(nCtx, gCtx context.Context) func() error {
	return func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			app.logger.Info("api server stopping. reason: requested to stop")
		} else {
			app.logger.Info("api server stopping. reason: errored at running")
		}

		sCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
		defer cancel()
		err := app.server.Shutdown(sCtx)
		switch {
		case err == nil, errors.Is(err, http.ErrServerClosed):
			app.logger.Info("api server graceful shutdown succeeded")
		case errors.Is(err, context.DeadlineExceeded):
			app.logger.Info("api server graceful shutdown timed out")
		default:
			app.logger.Info("api server graceful shutdown failed", zap.Error(err))
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Info("api server going to force shutdown", zap.Error(app.server.Close()))
		}
		app.Close()
		return nil
	}
}

// ConsumeQueues runs all queue consumers into separate controlled goroutines.
func (app *App) ConsumeQueues(gCtx context.Context, g *errgroup.Group) func() error {
	return func() error {
		for _, consume := range app.queueConsumers {
			consume := consume
			g.Go(func() error {
				return consume(gCtx)
			})
		}
		return nil
	}
}
