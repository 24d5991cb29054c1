package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/planora/planora/internal/server"
	"github.com/planora/planora/modules"
	allocpersistence "github.com/planora/planora/modules/allocation/infrastructure/persistence"
	"github.com/planora/planora/pkg/application"
	"github.com/planora/planora/pkg/configuration"
	"github.com/planora/planora/pkg/eventbus"
	"github.com/planora/planora/pkg/metrics"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	var pool *pgxpool.Pool
	if conf.Database.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		var err error
		pool, err = pgxpool.New(ctx, conf.Database.ConnectionString())
		if err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
		if err := allocpersistence.RunMigrations(conf.Database.ConnectionString()); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		ctx, cancel := context.WithTimeout(context.Background(), conf.ShutdownTimeout)
		defer cancel()
		if err := serverInstance.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("server shutdown")
		}
		if pool != nil {
			pool.Close()
		}
		conf.Unload()
	}()

	log.Printf("Listening on: %s\n", conf.Origin)
	if err := serverInstance.Start(conf.SocketAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("failed to start server: %v", err)
	}
}
