// Package app wires the service together and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "event-validation-service/internal/api/grpc"
	"event-validation-service/internal/config"
	"event-validation-service/internal/events"
	httpapi "event-validation-service/internal/http"
	"event-validation-service/internal/observability"
	"event-validation-service/internal/observability/logging"
	"event-validation-service/internal/observability/metrics"
	"event-validation-service/internal/schema"
	"event-validation-service/internal/schema/store"
)

const shutdownTimeout = 10 * time.Second

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Schemas   *Schemas
	Cache     *store.Cache
	Validator *schema.Validator
	Publisher *events.Publisher
	Consumer  *events.Consumer

	ready atomic.Bool
}

// New initializes logging and builds every component from cfg. Nothing
// listens until Run.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	schemas, err := OpenSchemas(ctx, cfg.Schemas)
	if err != nil {
		return nil, err
	}
	a.Schemas = schemas
	a.Cache = store.NewCache(schemas.Source)
	a.Validator = schema.New(a.Cache)

	a.Publisher = events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicValid:   cfg.Kafka.TopicValid,
		TopicInvalid: cfg.Kafka.TopicInvalid,
		Principal:    cfg.Kafka.Principal,
	})

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		handler := events.NewHandler(a.Validator, a.Publisher, cfg.Validation.Timeout)
		a.Consumer = events.NewConsumer(&events.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.TopicInput,
			GroupID: cfg.Kafka.GroupID,
			Workers: cfg.Validation.Workers,
		}, handler)
	}

	a.Logger.Info().
		Str("schemaSource", cfg.Schemas.Source).
		Bool("kafka", a.Consumer != nil).
		Msg("Event validation service application created")
	return a, nil
}

// Ready reports whether the initial schema warm-up has finished.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Start performs any startup work required before serving traffic: every
// listed schema is loaded into the cache. Schemas that fail to parse are
// logged and left for lookups to report.
func (a *Application) Start(ctx context.Context) error {
	a.StartupTime = time.Now().UTC()
	a.Logger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Event validation service starting")

	keys, err := a.Schemas.Lister.List(ctx)
	if err != nil {
		return fmt.Errorf("list schemas: %w", err)
	}
	for _, key := range keys {
		if err := a.Cache.Warm(ctx, key); err != nil {
			log := logging.WithSchema(key.String())
			log.Warn().Err(err).Msg("failed to preload schema")
		}
	}
	a.Logger.Info().Int("schemas", len(keys)).Msg("schemas preloaded")

	a.ready.Store(true)
	return nil
}

// Run starts the APIs, the schema watcher and the Kafka consumer, and blocks
// until ctx is done or one of them fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", ":"+a.Cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
	)
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	grpcapi.Register(grpcServer, a.Validator)
	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	httpServer := &http.Server{
		Addr: ":" + a.Cfg.Service.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Validator: a.Validator,
			Schemas:   a.Cache,
			Lister:    a.Schemas.Lister,
			Registry:  a.Schemas.Registry,
			Ready:     a.Ready,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	obs := observability.NewServer(a.Cfg.Service.MetricsAddr, a.Ready)
	obs.Start()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info().Str("port", a.Cfg.Service.GRPCPort).Msg("gRPC server started")
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		a.Logger.Info().Str("addr", httpServer.Addr).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if a.Schemas.Files != nil && a.Cfg.Schemas.Watch {
		g.Go(func() error {
			return a.Schemas.Files.Watch(ctx, func(key schema.Key) {
				if err := a.Cache.Warm(ctx, key); err != nil {
					log := logging.WithSchema(key.String())
					log.Warn().Err(err).Msg("failed to load new schema")
				}
			})
		})
	}

	if a.Consumer != nil {
		g.Go(func() error {
			return a.Consumer.Run(ctx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info().Msg("shutting down servers")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return multierr.Combine(
			httpServer.Shutdown(shutdownCtx),
			obs.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

// Shutdown releases the consumer, the publisher and the schema backend.
func (a *Application) Shutdown() error {
	a.Logger.Info().Msg("Event validation service shutting down")

	var err error
	if a.Consumer != nil {
		err = multierr.Append(err, a.Consumer.Close())
	}
	if a.Publisher != nil {
		err = multierr.Append(err, a.Publisher.Close())
	}
	if a.Schemas != nil {
		err = multierr.Append(err, a.Schemas.Close())
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("shutdown failed")
	}
	return err
}
