package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/box-tracking-service/internal/api/handlers"
	"github.com/wms-platform/box-tracking-service/internal/application"
	"github.com/wms-platform/box-tracking-service/internal/infrastructure/catalog"
	mongoRepo "github.com/wms-platform/box-tracking-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/box-tracking-service/pkg/cloudevents"
	"github.com/wms-platform/box-tracking-service/pkg/idempotency"
	"github.com/wms-platform/box-tracking-service/pkg/kafka"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/metrics"
	"github.com/wms-platform/box-tracking-service/pkg/middleware"
	"github.com/wms-platform/box-tracking-service/pkg/mongodb"
	"github.com/wms-platform/box-tracking-service/pkg/outbox"
	"github.com/wms-platform/box-tracking-service/pkg/resilience"
	"github.com/wms-platform/box-tracking-service/pkg/tracing"
)

const serviceName = "box-tracking-service"

func main() {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(context.Background(), loadConfig(), signalCh); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, config *Config, signalCh <-chan os.Signal) error {
	if config == nil {
		config = loadConfig()
	}

	// Setup logger
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(config.LogLevel)
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting box-tracking-service API")

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(serviceName)
	tracingConfig.OTLPEndpoint = config.OTLPEndpoint
	tracingConfig.Environment = config.Environment
	tracingConfig.Enabled = config.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", tracingConfig.OTLPEndpoint, "enabled", tracingConfig.Enabled)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))

	// Load the scan floor catalog
	floorCatalog, err := catalog.Load(config.CatalogPath)
	if err != nil {
		logger.WithError(err).Error("Failed to load catalog", "path", config.CatalogPath)
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	logger.Info("Catalog loaded",
		"series", len(floorCatalog.Series),
		"stations", len(floorCatalog.Stations),
		"containers", len(floorCatalog.Containers),
	)

	// Initialize MongoDB
	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer mongoClient.Close(context.Background())
	db := mongoClient.Database()
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	// Initialize CloudEvents factory and the scan ledger
	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceBoxTracking)
	ledger := mongoRepo.NewScanLedgerRepository(db, eventFactory, m, logger)
	if err := ledger.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to create scan ledger indexes")
	}

	// Initialize idempotency repository
	idempotencyRepo := idempotency.NewMongoKeyRepository(db)
	if err := idempotencyRepo.EnsureIndexes(ctx); err != nil {
		logger.WithError(err).Warn("Failed to initialize idempotency indexes")
	}

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(config.Kafka)
	defer func() {
		_ = kafkaProducer.Close()
	}()
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	logger.Info("Kafka producer initialized", "brokers", config.Kafka.Brokers)

	// Start the outbox relay
	outboxPublisher := outbox.NewPublisher(ledger.Outbox(), instrumentedProducer, logger, m, &outbox.PublisherConfig{
		PollInterval: 1 * time.Second,
		BatchSize:    100,
	})
	if err := outboxPublisher.Start(ctx); err != nil {
		logger.WithError(err).Error("Failed to start outbox publisher")
		return fmt.Errorf("failed to start outbox publisher: %w", err)
	}
	defer func() {
		_ = outboxPublisher.Stop()
	}()
	logger.Info("Outbox publisher started")

	// Ledger lookups go through a breaker so a struggling database fails fast
	breakers := resilience.NewRegistry(logger.Logger, m)
	ledgerBreaker := breakers.Get("scan-ledger")

	serviceConfig := application.DefaultScanServiceConfig()
	serviceConfig.FallbackToInbound = config.FallbackToInbound
	scanService := application.NewScanService(ledger, floorCatalog, ledgerBreaker, logger, m, serviceConfig)

	// Setup Gin router with middleware
	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(middleware.DefaultTracingConfig(serviceName)))

	// Health check endpoints
	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return mongoClient.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))
	router.GET("/circuit-breakers", func(c *gin.Context) {
		c.JSON(http.StatusOK, breakers.Status())
	})

	// Submissions are at-most-once per operator and Idempotency-Key
	idempotencyConfig := idempotency.DefaultConfig(serviceName, idempotencyRepo)
	idempotencyConfig.Metrics = idempotency.NewMetrics(m.Registry())
	idempotencyConfig.ScopeExtractor = func(c *gin.Context) string {
		return c.GetHeader(middleware.HeaderOperatorID)
	}

	apiV1 := router.Group("/api/v1")
	handlers.NewScanHandlers(scanService, logger).
		RegisterRoutes(apiV1, idempotency.Middleware(idempotencyConfig, logger.Logger))
	handlers.NewCatalogHandlers(floorCatalog).RegisterRoutes(apiV1)

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	select {
	case <-signalCh:
	case <-ctx.Done():
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
	return nil
}

// Config holds application configuration
type Config struct {
	ServerAddr        string
	CatalogPath       string
	LogLevel          string
	Environment       string
	OTLPEndpoint      string
	TracingEnabled    bool
	FallbackToInbound bool
	MongoDB           *mongodb.Config
	Kafka             *kafka.Config
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = splitList(getEnv("KAFKA_BROKERS", "localhost:9092"))

	return &Config{
		ServerAddr:        getEnv("SERVER_ADDR", ":8030"),
		CatalogPath:       getEnv("CATALOG_PATH", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracingEnabled:    getEnv("TRACING_ENABLED", "true") == "true",
		FallbackToInbound: getEnv("CLASSIFY_FALLBACK_INBOUND", "true") == "true",
		MongoDB:           mongoConfig,
		Kafka:             kafkaConfig,
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
