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
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/referenceentity"
	"github.com/Ramsey-B/fern/internal/repositories/relation"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/processor"
	"github.com/Ramsey-B/fern/pkg/routes/entity"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/routes/merge"
	"github.com/Ramsey-B/fern/pkg/routes/relationroute"
	"github.com/Ramsey-B/fern/pkg/routes/suggestion"
	"github.com/Ramsey-B/fern/pkg/scoring"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	// tracing
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))
	defer func() { _ = tp.Shutdown(ctx) }()

	// postgres
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName,
		cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)
	sqlxDB, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	db := database.NewDatabaseInstance(sqlxDB, logger)
	defer db.Close()

	// migrations
	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create migration driver")
	}
	migrationService := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	if err := migrationService.Migrate(cfg.DatabaseName, driver); err != nil {
		logger.WithError(err).Fatal("Failed to apply migrations")
	}

	// graph projection, optional
	var graphClient *graph.Client
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create graph client")
		}
		defer func() { _ = graphClient.Close(ctx) }()

		if err := graphClient.VerifyConnectivity(ctx); err != nil {
			logger.WithError(err).Warn("Graph database unreachable at startup")
		}
	}
	projection := graph.NewProjection(graphClient, logger)

	// repositories and engines
	entityRepo := referenceentity.NewRepository(db, logger)
	relationRepo := relation.NewRepository(db, logger)

	weights := scoring.DefaultWeights()
	if cfg.MatchWeightsPath != "" {
		weights, err = scoring.LoadWeightsFile(cfg.MatchWeightsPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to load scoring weights")
		}
	}
	scorer := scoring.NewScorer(weights)

	matchEngine := matching.NewEngine(logger, scorer, matching.Config{
		MinConfidence:  cfg.MatchMinConfidence,
		MaxSuggestions: cfg.MatchMaxSuggestions,
	})
	matcher := matching.NewService(logger, entityRepo, matchEngine, cfg.MatchWorkerCount)
	mergeEngine := merging.NewEngine(logger, entityRepo, relationRepo, merging.Config{
		WorkerCount: cfg.MergeWorkerCount,
	})

	// kafka
	var producer *kafka.Producer
	var emitter *events.Emitter
	if cfg.KafkaProducerEnabled {
		producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		defer producer.Close()
		emitter = events.NewEmitter(producer, logger)
	}

	if cfg.KafkaConsumerEnabled {
		contentProcessor := processor.NewContentProcessor(logger, matcher, emitter)
		consumer := kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, logger, contentProcessor.HandleMessage)
		if err := consumer.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start kafka consumer")
		}
		defer func() { _ = consumer.Stop() }()
	}

	if cfg.MergeSweepEnabled {
		runner := processor.NewMergeRunner(logger, entityRepo, mergeEngine, emitter, projection, cfg.MergeSweepInterval)
		if err := runner.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to start merge runner")
		}
		defer func() { _ = runner.Stop() }()
	}

	// dependency injection for route handlers
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		logger.WithError(err).Fatal("Failed to create DI container")
	}
	mustRegister(logger, ectoinject.RegisterInstance[ectologger.Logger](container, logger))
	mustRegister(logger, ectoinject.RegisterInstance[database.DB](container, db))
	mustRegister(logger, ectoinject.RegisterInstance[*referenceentity.Repository](container, entityRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*relation.Repository](container, relationRepo))
	mustRegister(logger, ectoinject.RegisterInstance[*matching.Service](container, matcher))
	mustRegister(logger, ectoinject.RegisterInstance[*scoring.Scorer](container, scorer))
	mustRegister(logger, ectoinject.RegisterInstance[*merging.Engine](container, mergeEngine))
	mustRegister(logger, ectoinject.RegisterInstance[*graph.Projection](container, projection))

	// http server
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))

	healthChecker := health.NewChecker(db, graphClient, version)
	healthChecker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	entity.Register(api.Group("/entities"))
	relationroute.Register(api.Group("/relations"))
	suggestion.Register(api.Group("/suggestions"))
	merge.Register(api.Group("/merge"))

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:    time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:   time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		healthChecker.SetReady(true)
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	logger.WithFields(map[string]any{
		"app":     cfg.AppName,
		"port":    cfg.Port,
		"version": version,
	}).Info("Service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	healthChecker.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down cleanly")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapCfg = zap.NewDevelopmentConfig()
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func mustRegister(logger ectologger.Logger, err error) {
	if err != nil {
		logger.WithError(err).Fatal("Failed to register dependency")
	}
}
