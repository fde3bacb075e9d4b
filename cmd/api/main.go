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
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/handlers"
	"github.com/Ramsey-B/fern/internal/repositories/actionitem"
	"github.com/Ramsey-B/fern/internal/repositories/call"
	"github.com/Ramsey-B/fern/internal/repositories/callsummary"
	"github.com/Ramsey-B/fern/internal/repositories/kpi"
	"github.com/Ramsey-B/fern/pkg/analysis"
	"github.com/Ramsey-B/fern/pkg/audio"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/health"
	"github.com/Ramsey-B/fern/pkg/httpclient"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/middleware"
	"github.com/Ramsey-B/fern/pkg/notify"
	"github.com/Ramsey-B/fern/pkg/pipeline"
	"github.com/Ramsey-B/fern/pkg/queue"
	redisclient "github.com/Ramsey-B/fern/pkg/redis"
	"github.com/Ramsey-B/fern/pkg/startup"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/tracing/exporters"
	"github.com/Ramsey-B/fern/pkg/transcription"
)

// app holds the shared state the startup dependencies build up.
type app struct {
	cfg    config.Config
	logger ectologger.Logger

	db        database.DB
	redis     *redisclient.Client
	streams   *redisclient.Streams
	producer  *kafka.Producer
	processor *queue.Processor
	checker   *health.Checker
	echo      *echo.Echo
}

// dependency adapts start/stop funcs to the startup framework.
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string     { return d.name }
func (d *dependency) DependsOn() []string { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error {
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

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg)
	a := &app{cfg: cfg, logger: logger}

	ctx := context.Background()

	shutdownTracing, err := initTracing(ctx, cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		os.Exit(1)
	}

	s := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	s.AddDependency(&dependency{name: "database", start: a.startDatabase, stop: a.stopDatabase})
	s.AddDependency(&dependency{name: "redis", start: a.startRedis, stop: a.stopRedis})
	s.AddDependency(&dependency{name: "kafka", start: a.startKafka, stop: a.stopKafka})
	s.AddDependency(&dependency{
		name:      "queue",
		dependsOn: []string{"database", "redis", "kafka"},
		start:     a.startQueue,
		stop:      a.stopQueue,
	})
	s.AddDependency(&dependency{
		name:      "server",
		dependsOn: []string{"database", "redis", "kafka"},
		start:     a.startServer,
		stop:      a.stopServer,
	})

	if err := s.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	a.checker.SetReady(true)
	logger.Infof("%s is ready on port %d", cfg.AppName, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")
	a.checker.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown did not complete cleanly")
	}
	shutdownTracing(stopCtx)
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

func initTracing(ctx context.Context, cfg config.Config) (func(context.Context), error) {
	if !cfg.OTLPEnabled {
		tracing.SetTracer(otel.Tracer(cfg.AppName))
		return func(context.Context) {}, nil
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.AppName),
		)),
	)
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func(ctx context.Context) {
		_ = tp.Shutdown(ctx)
	}, nil
}

func (a *app) startDatabase(ctx context.Context) error {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		a.cfg.DatabaseHost,
		a.cfg.DatabasePort,
		a.cfg.DatabaseUserName,
		a.cfg.DatabasePassword,
		a.cfg.DatabaseName,
		a.cfg.DatabaseSSLMode,
	)

	sqlxDB, err := sqlx.Open(a.cfg.DatabaseDriver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := sqlxDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	sqlxDB.SetMaxOpenConns(a.cfg.DatabaseMaxOpenConns)
	sqlxDB.SetMaxIdleConns(a.cfg.DatabaseMaxIdleConns)
	sqlxDB.SetConnMaxLifetime(a.cfg.DatabaseConnMaxLifetime)

	a.db = database.NewDatabaseInstance(sqlxDB, a.logger)

	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrations := database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	})
	return migrations.Migrate(a.cfg.DatabaseName, driver)
}

func (a *app) stopDatabase(context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

func (a *app) startRedis(context.Context) error {
	client, err := redisclient.NewClient(redisclient.Config{
		Host:     a.cfg.RedisHost,
		Port:     a.cfg.RedisPort,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	}, a.logger)
	if err != nil {
		return err
	}

	a.redis = client
	a.streams = redisclient.NewStreams(client)
	return nil
}

func (a *app) stopRedis(context.Context) error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}

func (a *app) startKafka(context.Context) error {
	if !a.cfg.KafkaEnabled {
		a.logger.Info("Kafka is disabled, call events will not be published")
		return nil
	}

	a.producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      a.cfg.KafkaBrokers,
		Topic:        a.cfg.KafkaOutputTopic,
		BatchSize:    a.cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(a.cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: a.cfg.KafkaRequiredAcks,
		Compression:  a.cfg.KafkaCompression,
	}, a.logger)
	return nil
}

func (a *app) stopKafka(context.Context) error {
	if a.producer == nil {
		return nil
	}
	return a.producer.Close()
}

func (a *app) startQueue(ctx context.Context) error {
	openaiClient := openai.NewClient(
		option.WithAPIKey(a.cfg.OpenAIAPIKey),
		option.WithRequestTimeout(a.cfg.OpenAITimeout),
	)

	downloadClient := httpclient.NewClient(httpclient.Config{
		Timeout: a.cfg.DownloadTimeout,
	}, a.logger)

	orchestrator := pipeline.NewOrchestrator(
		call.NewRepository(a.db, a.logger),
		callsummary.NewRepository(a.db, a.logger),
		actionitem.NewRepository(a.db, a.logger),
		database.NewTxRunner(a.db),
		audio.NewFetcher(downloadClient, audio.FetcherConfig{
			TempDir:  a.cfg.AudioTempDir,
			MaxBytes: a.cfg.MaxRecordingSizeBytes,
		}, a.logger),
		audio.NewNormalizer(audio.NormalizerConfig{}, a.logger),
		transcription.NewClient(openaiClient, transcription.Config{
			Model:    a.cfg.WhisperModel,
			Language: a.cfg.TranscriptionLang,
			Prompt:   a.cfg.TranscriptionPrompt,
		}, a.logger),
		analysis.NewClient(openaiClient, analysis.Config{
			Model: a.cfg.AnalysisModel,
		}, a.logger),
		a.buildNotifier(),
		events.NewEmitter(a.producer, a.logger),
		pipeline.Config{DashboardBaseURL: a.cfg.DashboardBaseURL},
		a.logger,
	)

	processorConfig := queue.DefaultProcessorConfig()
	processorConfig.Stream = a.cfg.RedisStreamsJobQueue
	processorConfig.ConsumerGroup = a.cfg.RedisStreamsConsumerGroup
	if a.cfg.RedisStreamsConsumerName != "" {
		processorConfig.ConsumerName = a.cfg.RedisStreamsConsumerName
	}
	processorConfig.WorkerCount = a.cfg.PipelineWorkerCount
	processorConfig.MaxRetries = a.cfg.PipelineMaxRetries

	dlq := redisclient.NewDeadLetterQueue(a.redis, redisclient.DefaultDLQStream, a.cfg.RedisStreamsJobQueue, a.logger)
	a.processor = queue.NewProcessor(a.streams, dlq, orchestrator, processorConfig, a.logger)
	return a.processor.Start(ctx)
}

func (a *app) stopQueue(ctx context.Context) error {
	if a.processor == nil {
		return nil
	}
	return a.processor.Stop(ctx)
}

func (a *app) buildNotifier() *notify.Notifier {
	var channels []notify.Channel

	if a.cfg.SlackWebhookURL != "" {
		slackClient := httpclient.NewClient(httpclient.DefaultConfig(), a.logger)
		channels = append(channels, notify.NewSlackChannel(slackClient, notify.SlackConfig{
			WebhookURL: a.cfg.SlackWebhookURL,
		}, a.logger))
	}

	if a.cfg.SMTPHost != "" && len(a.cfg.NotifyEmailAddrs) > 0 {
		channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
			Host:     a.cfg.SMTPHost,
			Port:     a.cfg.SMTPPort,
			Username: a.cfg.SMTPUserName,
			Password: a.cfg.SMTPPassword,
			From:     a.cfg.SMTPFromAddress,
			To:       a.cfg.NotifyEmailAddrs,
		}, a.logger))
	}

	return notify.NewNotifier(channels, notify.Config{
		MinUrgency: a.cfg.NotifyMinUrgency,
	}, a.logger)
}

func (a *app) startServer(context.Context) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)

	e.Use(middleware.Context())
	e.Use(otelecho.Middleware(a.cfg.AppName))
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: a.cfg.AllowOrigins,
		AllowMethods: a.cfg.AllowMethods,
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	a.checker = health.NewChecker(a.db, a.redis.Redis(), os.Getenv("APP_VERSION"))
	a.checker.RegisterRoutes(e)

	callRepo := call.NewRepository(a.db, a.logger)
	summaryRepo := callsummary.NewRepository(a.db, a.logger)
	itemRepo := actionitem.NewRepository(a.db, a.logger)
	kpiRepo := kpi.NewRepository(a.db, a.logger)

	dispatcher := queue.NewDispatcher(a.streams, a.cfg.RedisStreamsJobQueue)
	emitter := events.NewEmitter(a.producer, a.logger)

	webhookHandler := handlers.NewWebhookHandler(
		callRepo,
		dispatcher,
		emitter,
		a.cfg.WebhookSecret,
		a.cfg.SimulationEnabled,
		a.logger,
	)
	webhookHandler.RegisterRoutes(e)

	api := e.Group("/api/v1")
	if a.cfg.AuthEnabled {
		api.Use(middleware.Authentication(a.logger, a.cfg.AuthIssuerURL, a.cfg.AuthClientID))
	}

	dlq := redisclient.NewDeadLetterQueue(a.redis, redisclient.DefaultDLQStream, a.cfg.RedisStreamsJobQueue, a.logger)

	handlers.NewCallHandler(callRepo, summaryRepo, itemRepo, a.logger).RegisterRoutes(api)
	handlers.NewActionItemHandler(itemRepo, a.logger).RegisterRoutes(api)
	handlers.NewKPIHandler(kpiRepo, a.logger).RegisterRoutes(api)
	handlers.NewDLQHandler(dlq, a.logger).RegisterRoutes(api)

	a.echo = e

	go func() {
		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Port),
			ReadTimeout:       time.Duration(a.cfg.HttpServerReadTimeoutSeconds) * time.Second,
			WriteTimeout:      time.Duration(a.cfg.HttpServerWriteTimeoutSeconds) * time.Second,
			IdleTimeout:       time.Duration(a.cfg.HttpServerIdleTimeoutSeconds) * time.Second,
			ReadHeaderTimeout: time.Duration(a.cfg.ReadHeaderTimeoutSeconds) * time.Second,
			MaxHeaderBytes:    a.cfg.MaxHeaderBytes,
		}
		if err := e.StartServer(server); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server stopped")
			os.Exit(1)
		}
	}()
	return nil
}

func (a *app) stopServer(ctx context.Context) error {
	if a.echo == nil {
		return nil
	}
	return a.echo.Shutdown(ctx)
}
