package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/marvinm2/KE-WP-mapping-sub001/config"
	"github.com/marvinm2/KE-WP-mapping-sub001/internal/handlers"
	mappingrepo "github.com/marvinm2/KE-WP-mapping-sub001/internal/repositories/mapping"
	proposalrepo "github.com/marvinm2/KE-WP-mapping-sub001/internal/repositories/proposal"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/database"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/embeddings"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/events"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/genes"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/kafka"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/lifecycle"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/middleware"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/startup"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/suggest"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing"
	"github.com/marvinm2/KE-WP-mapping-sub001/pkg/tracing/exporters"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		var exporter sdktrace.SpanExporter
		if cfg.TracingOTLPEndpoint != "" {
			otlpCfg := exporters.DefaultOTLPConfig()
			otlpCfg.Endpoint = cfg.TracingOTLPEndpoint
			exporter, err = exporters.NewOTLPExporter(ctx, otlpCfg)
		} else {
			exporter, err = exporters.NewConsoleExporter()
		}
		if err != nil {
			logger.WithError(err).Error("Failed to create trace exporter")
			os.Exit(1)
		}
		shutdown := tracing.Init(cfg.AppName, exporter)
		defer shutdown(context.Background())
	}

	app := &application{cfg: cfg, logger: logger}

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&databaseDependency{app: app})
	boot.AddDependency(&embeddingsDependency{app: app})
	boot.AddDependency(&kafkaDependency{app: app})
	boot.AddDependency(&serverDependency{app: app})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// application carries the wired components across startup dependencies
type application struct {
	cfg    config.Config
	logger ectologger.Logger

	sqlxDB   *sqlx.DB
	db       database.DB
	store    *embeddings.Store
	producer *kafka.Producer
	server   *echo.Echo
	checker  *handlers.Checker
}

type databaseDependency struct {
	app *application
}

func (d *databaseDependency) GetName() string     { return "database" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode)

	sqlxDB, err := sqlx.ConnectContext(ctx, cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}
	sqlxDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	driver, err := postgres.WithInstance(sqlxDB.DB, &postgres.Config{})
	if err != nil {
		return err
	}
	migrations := database.NewMigrationService(d.app.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(cfg.DatabaseName, driver); err != nil {
		return err
	}

	d.app.sqlxDB = sqlxDB
	d.app.db = database.NewDatabaseInstance(sqlxDB, d.app.logger)
	return nil
}

func (d *databaseDependency) Stop(ctx context.Context) error {
	if d.app.sqlxDB != nil {
		return d.app.sqlxDB.Close()
	}
	return nil
}

type embeddingsDependency struct {
	app *application
}

func (d *embeddingsDependency) GetName() string     { return "embeddings" }
func (d *embeddingsDependency) DependsOn() []string { return nil }

func (d *embeddingsDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	store, err := embeddings.Load(embeddings.LoaderConfig{
		TermArtifactPath:     cfg.EmbeddingArtifactPath,
		KeyEventArtifactPath: cfg.KeyEventEmbeddingPath,
		Workers:              cfg.EmbeddingWorkerCount,
	}, d.app.logger)
	if err != nil {
		return err
	}
	d.app.store = store
	return nil
}

func (d *embeddingsDependency) Stop(ctx context.Context) error { return nil }

type kafkaDependency struct {
	app *application
}

func (d *kafkaDependency) GetName() string     { return "kafka" }
func (d *kafkaDependency) DependsOn() []string { return nil }

func (d *kafkaDependency) Start(ctx context.Context) error {
	cfg := d.app.cfg
	if !cfg.KafkaEnabled {
		d.app.logger.Info("Kafka disabled; mapping events will not be published")
		return nil
	}
	d.app.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, d.app.logger)
	return nil
}

func (d *kafkaDependency) Stop(ctx context.Context) error {
	if d.app.producer != nil {
		return d.app.producer.Close()
	}
	return nil
}

type serverDependency struct {
	app *application
}

func (d *serverDependency) GetName() string     { return "http-server" }
func (d *serverDependency) DependsOn() []string { return []string{"database", "embeddings", "kafka"} }

func (d *serverDependency) Start(ctx context.Context) error {
	app := d.app
	cfg := app.cfg

	mappingRepo := mappingrepo.NewRepository(app.db, app.logger)
	proposalRepo := proposalrepo.NewRepository(app.db, app.logger)

	var emitter lifecycle.Emitter
	if app.producer != nil {
		emitter = events.NewEmitter(app.producer, app.logger)
	}
	service := lifecycle.NewService(app.db, mappingRepo, proposalRepo, emitter, app.logger)

	engine := suggest.NewEngine(app.logger, app.store, suggest.EngineConfig{
		DefaultTopK: cfg.SuggestDefaultTopK,
		MaxTopK:     cfg.SuggestMaxTopK,
	})

	var geneSource handlers.GeneSource
	if cfg.GeneServiceURL != "" {
		geneCfg := genes.DefaultConfig(cfg.GeneServiceURL)
		geneCfg.Timeout = cfg.GeneServiceTimeout
		geneSource = genes.NewClient(geneCfg, app.logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(app.logger)
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(app.logger))

	api := e.Group("/api/v1")

	var reviewMiddleware []echo.MiddlewareFunc
	if cfg.AuthEnabled {
		authMiddleware, err := middleware.Authentication(ctx, app.logger, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			return err
		}
		api.Use(authMiddleware)
		reviewMiddleware = append(reviewMiddleware, middleware.RequireRole(cfg.ReviewerRole))
	}

	handlers.NewSuggestionHandler(engine, geneSource, app.logger).RegisterRoutes(api)
	handlers.NewMappingHandler(service, mappingRepo).RegisterRoutes(api)
	handlers.NewProposalHandler(service, proposalRepo).RegisterRoutes(api, reviewMiddleware...)
	handlers.NewAssessmentHandler().RegisterRoutes(api)

	app.checker = handlers.NewChecker(app.sqlxDB, app.store, version)
	app.checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	app.server = e

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			app.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	app.checker.SetReady(true)
	app.logger.WithFields(map[string]any{"port": cfg.Port, "terms": app.store.Size()}).Info("API started")
	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.app.checker != nil {
		d.app.checker.SetReady(false)
	}
	if d.app.server != nil {
		return d.app.server.Shutdown(ctx)
	}
	return nil
}
