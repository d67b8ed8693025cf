package main

import (
	"context"
	"log"

	"delivery-engine/internal/core/config"
	"delivery-engine/internal/core/events"
	"delivery-engine/internal/core/logger"
	"delivery-engine/internal/core/server"
	"delivery-engine/internal/core/store"
	assignmentadapter "delivery-engine/internal/features/assignment/adapters"
	assignmenthandler "delivery-engine/internal/features/assignment/handler"
	assignmentservice "delivery-engine/internal/features/assignment/service"
	driveradapter "delivery-engine/internal/features/drivers/adapters"
	driverhandler "delivery-engine/internal/features/drivers/handler"
	driverservice "delivery-engine/internal/features/drivers/service"
	routehandler "delivery-engine/internal/features/routes/handler"
	routeservice "delivery-engine/internal/features/routes/service"
	trackinghandler "delivery-engine/internal/features/tracking/handler"
	trackingservice "delivery-engine/internal/features/tracking/service"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.Store.Backend),
	)

	// Initialize the document store and verify connectivity
	backing, err := newStore(cfg)
	if err != nil {
		l.Fatal("Store initialization failed", zap.Error(err))
	}
	defer backing.Close()
	if err := backing.Ping(context.Background()); err != nil {
		l.Fatal("Store health check failed", zap.Error(err))
	}
	l.Info("Store connection verified", zap.String("backend", cfg.Store.Backend))

	// Initialize the event sink
	sink, err := newSink(cfg)
	if err != nil {
		l.Fatal("Event sink initialization failed", zap.Error(err))
	}

	// Initialize Driver Registry
	driverSvc := driverservice.NewService(
		driveradapter.NewStoreDriverRepository(backing),
		cfg.Engine.DefaultDriverCapacity,
		logger.Named("drivers"),
	)
	driverHdl := driverhandler.NewDriverHandler(driverSvc)

	// Initialize Geofence Registry & Location Ingestion
	geofences := trackingservice.NewRegistry(cfg.Engine.GeofenceRadiusM, logger.Named("geofences"))
	ingestor := trackingservice.NewIngestor(
		driverSvc,
		geofences,
		sink,
		cfg.Engine.AccuracyLimitM,
		logger.Named("ingest"),
	)
	locationHdl := trackinghandler.NewLocationHandler(ingestor)

	// Initialize Assignment State Machine
	assignmentSvc := assignmentservice.NewService(
		assignmentadapter.NewStoreRequestRepository(backing),
		driverSvc,
		geofences,
		sink,
		logger.Named("assignment"),
	)
	assignmentHdl := assignmenthandler.NewRequestHandler(assignmentSvc)

	// Initialize Route Builder
	routeSvc := routeservice.NewService(assignmentSvc, geofences, driverSvc, logger.Named("routes"))
	routeHdl := routehandler.NewRouteHandler(routeSvc)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Post("/requests", assignmentHdl.Create)
	srv.App.Get("/requests/:id", assignmentHdl.Get)
	srv.App.Get("/requests/:id/candidates", assignmentHdl.Candidates)
	srv.App.Post("/requests/:id/assign", assignmentHdl.Assign)
	srv.App.Post("/requests/:id/progress", assignmentHdl.Progress)
	srv.App.Post("/requests/:id/complete", assignmentHdl.Complete)
	srv.App.Post("/requests/:id/cancel", assignmentHdl.Cancel)
	srv.App.Post("/requests/:id/fail", assignmentHdl.Fail)

	srv.App.Post("/drivers", driverHdl.Onboard)
	srv.App.Get("/drivers/:id", driverHdl.Get)
	srv.App.Post("/drivers/:id/offline", driverHdl.SetOffline)
	srv.App.Post("/drivers/:id/location", locationHdl.Ingest)
	srv.App.Get("/drivers/:id/route", routeHdl.Get)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}

// newStore selects the document store backend from configuration.
func newStore(cfg *config.AppConfig) (store.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return store.NewRedisAdapter(cfg.Store.RedisURL)
	case "postgres":
		return store.NewPostgresAdapter(context.Background(), cfg.Store.PostgresURL)
	default:
		return store.NewMemoryAdapter(), nil
	}
}

// newSink selects the event sink: the AMQP broker when configured, the
// application log otherwise.
func newSink(cfg *config.AppConfig) (events.Sink, error) {
	if cfg.Events.AMQPURL != "" {
		return events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.AMQPExchange)
	}
	return events.NewLogSink(logger.Named("events")), nil
}
