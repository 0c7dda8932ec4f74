package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/baobab/config"
	"github.com/Ramsey-B/baobab/internal/storage"
	"github.com/Ramsey-B/baobab/pkg/database"
	"github.com/Ramsey-B/baobab/pkg/events"
	"github.com/Ramsey-B/baobab/pkg/httpclient"
	"github.com/Ramsey-B/baobab/pkg/kafka"
	"github.com/Ramsey-B/baobab/pkg/logger"
	"github.com/Ramsey-B/baobab/pkg/matching"
	"github.com/Ramsey-B/baobab/pkg/merging"
	"github.com/Ramsey-B/baobab/pkg/middleware"
	"github.com/Ramsey-B/baobab/pkg/orchestrator"
	"github.com/Ramsey-B/baobab/pkg/redis"
	"github.com/Ramsey-B/baobab/pkg/routes/health"
	"github.com/Ramsey-B/baobab/pkg/routes/payers"
	"github.com/Ramsey-B/baobab/pkg/routes/scrapers"
	"github.com/Ramsey-B/baobab/pkg/sources"
	"github.com/Ramsey-B/baobab/pkg/startup"
	"github.com/Ramsey-B/baobab/pkg/tracing"
	"github.com/Ramsey-B/baobab/pkg/tracing/exporters"
)

type dependency struct {
	name  string
	needs []string
	start func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

func (d *dependency) GetName() string { return d.name }

func (d *dependency) DependsOn() []string { return d.needs }

func (d *dependency) Start(ctx context.Context) error {
	if d.start == nil {
		return nil
	}
	return d.start(ctx)
}

func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(&exporters.ConsoleExporter{}))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(otel.Tracer(cfg.AppName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log ectologger.Logger) error {
	var (
		db          *sqlx.DB
		redisClient *redis.Client
		producer    *kafka.Producer
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	boot := startup.New(log, cfg.StartupMaxAttempts)

	boot.AddDependency(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			dsn := fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
				cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
			)
			conn, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
			if err != nil {
				return err
			}
			conn.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
			conn.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
			conn.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
			db = conn
			return nil
		},
		stop: func(context.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:  "migrations",
		needs: []string{"postgres"},
		start: func(context.Context) error {
			driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
			if err != nil {
				return err
			}
			ms := database.NewMigrationService(log, &database.MigrationConfig{
				MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
				Version:             uint(cfg.DatabaseMigrationVersion),
				Force:               cfg.DatabaseMigrationForce,
				AutoRollback:        cfg.DatabaseMigrationAutoRollback,
			})
			return ms.Migrate(cfg.DatabaseName, driver)
		},
	})

	boot.AddDependency(&dependency{
		name: "redis",
		start: func(context.Context) error {
			client, err := redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, log)
			if err != nil {
				// The run lock and shared throttle degrade gracefully.
				log.WithError(err).Warn("Redis unavailable, run locking and shared rate limiting disabled")
				return nil
			}
			redisClient = client
			return nil
		},
		stop: func(context.Context) error {
			if redisClient != nil {
				return redisClient.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name: "kafka",
		start: func(context.Context) error {
			if !cfg.KafkaProducerEnabled {
				log.Info("Kafka producer disabled, payer events will not be published")
				return nil
			}
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaOutputTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, log)
			return nil
		},
		stop: func(context.Context) error {
			if producer != nil {
				return producer.Close()
			}
			return nil
		},
	})

	boot.AddDependency(&dependency{
		name:  "http",
		needs: []string{"postgres", "migrations", "redis", "kafka"},
		start: func(context.Context) error {
			return wireService(cfg, log, e, db, redisClient, producer)
		},
		stop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})

	if err := boot.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := boot.Stop(shutdownCtx); err != nil {
			log.WithError(err).Error("Shutdown did not complete cleanly")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(fmt.Sprintf(":%d", cfg.Port))
	}()
	log.WithField("port", cfg.Port).Infof("%s listening on :%d", cfg.AppName, cfg.Port)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
		return nil
	case err := <-errCh:
		return err
	}
}

// wireService builds the pipeline and mounts the HTTP surface.
func wireService(cfg config.Config, log ectologger.Logger, e *echo.Echo, db *sqlx.DB, redisClient *redis.Client, producer *kafka.Producer) error {
	dbInstance := database.NewDatabaseInstance(db, log)
	store := storage.New(dbInstance, log)

	fetchClient := httpclient.NewClient(httpclient.Config{
		Timeout:         time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		UserAgent:       cfg.UserAgent,
		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}, httpclient.RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		BaseDelay:      cfg.RetryBackoffBase,
		RateLimitDelay: cfg.RateLimitDelay,
	}, log)

	var lock orchestrator.RunLocker
	if redisClient != nil {
		limiter := redis.NewRateLimiter(redisClient, "")
		fetchClient.SetLimiter(redis.NewSourceThrottle(limiter, cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitDelay, log))
		lock = redis.NewRunLock(redisClient, 0)
	}

	registry := sources.NewRegistry()
	government := sources.NewGovernmentAdapter(fetchClient, cfg.GovernmentBaseURL, log)
	government.SetMaxPages(cfg.MaxPagesPerSource)
	registry.Register(government)
	directory := sources.NewDirectoryAdapter(fetchClient, "business_directory", cfg.DirectoryBaseURL, log)
	directory.SetMaxPages(cfg.MaxPagesPerSource)
	registry.Register(directory)

	var emitter events.Emitter = events.NoopEmitter{}
	if producer != nil {
		emitter = events.NewKafkaEmitter(producer, log)
	}

	matcher := matching.NewEngine(store, cfg.DuplicateThreshold, cfg.MatchCandidateLimit, log)
	merger := merging.NewEngine(store, matcher, merging.Config{
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		RejectLowConfidence: cfg.RejectLowConfidence,
	}, log)
	orch := orchestrator.NewOrchestrator(registry, store, merger, emitter, lock, orchestrator.Config{
		MaxConcurrentSources:     cfg.MaxConcurrentSources,
		SourceReliabilityDefault: cfg.SourceReliabilityDefault,
	}, log)

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*storage.Storage](container, store); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*orchestrator.Orchestrator](container, orch); err != nil {
		return err
	}

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(log)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(log))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var pinger health.Pinger
	if redisClient != nil {
		pinger = redisClient
	}
	checker := health.NewChecker(db, pinger, cfg.AppName)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	api := e.Group("/api/v1")
	payers.Register(api.Group("/payers"))
	scrapers.Register(api.Group("/scrapers"))

	return nil
}
