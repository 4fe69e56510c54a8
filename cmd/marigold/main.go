package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/marigold/config"
	"github.com/Ramsey-B/marigold/internal/handlers"
	"github.com/Ramsey-B/marigold/internal/repositories/adaccount"
	"github.com/Ramsey-B/marigold/internal/repositories/campaign"
	"github.com/Ramsey-B/marigold/internal/repositories/connection"
	"github.com/Ramsey-B/marigold/internal/repositories/insight"
	"github.com/Ramsey-B/marigold/internal/repositories/tenant"
	"github.com/Ramsey-B/marigold/pkg/database"
	"github.com/Ramsey-B/marigold/pkg/events"
	"github.com/Ramsey-B/marigold/pkg/health"
	"github.com/Ramsey-B/marigold/pkg/httpclient"
	"github.com/Ramsey-B/marigold/pkg/ingest"
	"github.com/Ramsey-B/marigold/pkg/kafka"
	"github.com/Ramsey-B/marigold/pkg/meta"
	"github.com/Ramsey-B/marigold/pkg/middleware"
	"github.com/Ramsey-B/marigold/pkg/queue"
	"github.com/Ramsey-B/marigold/pkg/redis"
	"github.com/Ramsey-B/marigold/pkg/scheduler"
	syncsvc "github.com/Ramsey-B/marigold/pkg/sync"
	"github.com/Ramsey-B/marigold/pkg/tracing"
	"github.com/Ramsey-B/marigold/pkg/tracing/exporters"
	"github.com/Ramsey-B/marigold/pkg/worker"
)

const version = "1.0.0"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to bind config: %v", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	shutdownTracing := initTracing(ctx, cfg, logger)
	defer shutdownTracing()

	// Database
	db, err := database.Connect(ctx, database.ConnectConfig{
		Driver:            cfg.DatabaseDriver,
		Host:              cfg.DatabaseHost,
		Port:              cfg.DatabasePort,
		UserName:          cfg.DatabaseUserName,
		Password:          cfg.DatabasePassword,
		Name:              cfg.DatabaseName,
		SSLMode:           cfg.DatabaseSSLMode,
		ReconnectAttempts: cfg.DatabaseReconnectRetryCount,
		MaxOpenConns:      cfg.DatabaseMaxOpenConns,
		MaxIdleConns:      cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime:   cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer db.Unwrap().Close()

	// Migrations
	driver, err := migratepg.WithInstance(db.Unwrap().DB, &migratepg.Config{})
	if err != nil {
		logger.WithError(err).Error("Failed to create migration driver")
		os.Exit(1)
	}
	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}

	// Redis
	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to redis")
		os.Exit(1)
	}
	defer redisClient.Close()

	reportCache := redis.NewCache(redisClient, "marigold:", cfg.ReportCacheTTL)
	locker := redis.NewLocker(redisClient, "marigold:lock:")

	// Kafka lifecycle events (optional)
	var emitter *events.Emitter
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      []string{cfg.KafkaBrokers},
			Topic:        cfg.KafkaSyncTopic,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	// Graph API client
	httpClient := httpclient.NewClient(httpclient.Config{
		Timeout: cfg.GraphAPIRequestTimeout,
	}, logger)
	metaClient := meta.NewClient(httpClient, meta.Config{
		BaseURL:  cfg.GraphAPIBaseURL,
		Version:  cfg.GraphAPIVersion,
		PageSize: cfg.GraphAPIPageSize,
		MaxPages: cfg.GraphAPIMaxPages,
	}, logger)

	// Repositories
	tenants := tenant.NewRepository(db, logger)
	connections := connection.NewRepository(db, logger)
	accounts := adaccount.NewRepository(db, logger)
	campaigns := campaign.NewRepository(db, logger)
	insights := insight.NewRepository(db, logger)

	// Queue and sync pipeline
	jobQueue := queue.NewJobQueue(db, logger)
	writer := ingest.NewWriter(campaigns, insights, logger)
	orchestrator := syncsvc.NewOrchestrator(accounts, connections, metaClient, writer, syncsvc.Config{
		DefaultLookbackDays: cfg.SyncDefaultLookbackDays,
		MaxLookbackDays:     cfg.SyncMaxLookbackDays,
	}, logger)

	// Worker
	var syncWorker *worker.Worker
	if cfg.WorkerEnabled {
		syncWorker = worker.NewWorker(jobQueue, orchestrator, emitter, worker.Config{
			PollInterval: cfg.WorkerPollInterval,
		}, logger)
		if err := syncWorker.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start worker")
			os.Exit(1)
		}
	}

	// Scheduler
	var syncScheduler *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		syncScheduler = scheduler.NewScheduler(accounts, jobQueue, locker, scheduler.Config{
			PollInterval: cfg.SchedulerPollInterval,
			SyncInterval: cfg.SchedulerSyncInterval,
			LockTTL:      cfg.SchedulerLockTTL,
			LookbackDays: cfg.SyncDefaultLookbackDays,
		}, logger)
		if err := syncScheduler.Start(ctx); err != nil {
			logger.WithError(err).Error("Failed to start scheduler")
			os.Exit(1)
		}
	}

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	checker := health.NewChecker(db.Unwrap(), redisClient, version)
	checker.RegisterRoutes(e)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		api.Use(middleware.Authentication(logger, cfg.AuthIssuerURL, cfg.AuthClientID))
	}

	handlers.NewTenantHandler(tenants).RegisterRoutes(api)
	handlers.NewConnectionHandler(connections, accounts, metaClient, logger).RegisterRoutes(api)
	handlers.NewSyncHandler(jobQueue, accounts).RegisterRoutes(api)
	handlers.NewReportHandler(insights, accounts, campaigns, reportCache, logger).RegisterRoutes(api)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server stopped")
		os.Exit(1)
		}
	}()

	checker.SetReady(true)
	logger.Infof("%s started on port %d", cfg.AppName, cfg.Port)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	checker.SetReady(false)
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if syncScheduler != nil {
		if err := syncScheduler.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Scheduler did not stop cleanly")
		}
	}
	if syncWorker != nil {
		if err := syncWorker.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Worker did not stop cleanly")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("HTTP server did not stop cleanly")
	}

	logger.Info("Shutdown complete")
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// initTracing wires the global tracer. With OTLP disabled spans are created
// but never exported.
func initTracing(ctx context.Context, cfg config.Config, logger ectologger.Logger) func() {
	var exporter sdktrace.SpanExporter
	if cfg.OTLPEnabled {
		otlpExporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Protocol: cfg.OTLPProtocol,
			Insecure: cfg.OTLPInsecure,
			Timeout:  10 * time.Second,
		})
		if err != nil {
			logger.WithError(err).Error("Failed to create OTLP exporter")
		os.Exit(1)
		}
		exporter = otlpExporter
	} else {
		exporter = &exporters.ConsoleExporter{}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(sdkresource.Default()),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Tracer provider shutdown failed")
		}
	}
}
