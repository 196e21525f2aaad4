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

	"github.com/gin-gonic/gin"

	"github.com/attendly/ticketing/internal/di"
	"github.com/attendly/ticketing/internal/gateway"
	"github.com/attendly/ticketing/internal/metrics"
	"github.com/attendly/ticketing/internal/service"
	"github.com/attendly/ticketing/migrations"
	"github.com/attendly/ticketing/pkg/config"
	"github.com/attendly/ticketing/pkg/database"
	"github.com/attendly/ticketing/pkg/logger"
	"github.com/attendly/ticketing/pkg/middleware"
	pkgredis "github.com/attendly/ticketing/pkg/redis"
	"github.com/attendly/ticketing/pkg/telemetry"
)

const serviceName = "ticketing"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting ticketing service...")

	ctx := context.Background()

	// OpenTelemetry tracing and metrics
	otelCfg := &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	}
	if _, err := telemetry.Init(ctx, otelCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Tracing init failed, continuing without: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	if err := telemetry.InitMetrics(ctx, otelCfg); err != nil {
		appLog.Warn(fmt.Sprintf("Metrics init failed, continuing without: %v", err))
	}
	defer telemetry.ShutdownMetrics(context.Background())

	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to register metrics: %v", err))
	}

	// PostgreSQL
	dbCfg := &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   1 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	if err := migrations.Apply(ctx, db.Pool()); err != nil {
		appLog.Fatal(fmt.Sprintf("Migrations failed: %v", err))
	}
	appLog.Info("Migrations applied")

	// Redis backs the idempotency middleware
	redisCfg := &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
	}
	redisClient, err := pkgredis.NewClient(ctx, redisCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Payment gateway
	var paymentGateway gateway.PaymentGateway
	switch cfg.Payment.Provider {
	case "stripe":
		paymentGateway, err = gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
			SecretKey:     cfg.Payment.StripeSecretKey,
			WebhookSecret: cfg.Payment.WebhookSecret,
			Environment:   cfg.App.Environment,
		})
		if err != nil {
			appLog.Fatal(fmt.Sprintf("Stripe gateway init failed: %v", err))
		}
		appLog.Info("Stripe payment gateway configured")
	default:
		mockCfg := gateway.DefaultMockGatewayConfig()
		if cfg.Payment.MockSuccessRate > 0 {
			mockCfg.SuccessRate = cfg.Payment.MockSuccessRate
		}
		paymentGateway = gateway.NewMockGateway(mockCfg)
		appLog.Info("Mock payment gateway configured")
	}

	// Kafka event publisher
	var eventPublisher service.EventPublisher
	if cfg.Kafka.Enabled {
		eventPublisher, err = service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       "registration-events",
			ServiceName: serviceName,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
			eventPublisher = service.NewNoOpEventPublisher()
		} else {
			appLog.Info("Kafka event publisher connected")
		}
	} else {
		eventPublisher = service.NewNoOpEventPublisher()
	}
	defer eventPublisher.Close()

	container := di.NewContainer(&di.ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		PaymentGateway: paymentGateway,
		EventPublisher: eventPublisher,
		Registration:   &cfg.Registration,
		WebhookSecret:  cfg.Payment.WebhookSecret,
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
		gin.DisableConsoleColor()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(serviceName))
	router.Use(metrics.RequestMiddleware())

	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": serviceName,
			})
		})

		// Stripe calls this with its own signature scheme, no JWT
		v1.POST("/webhooks/stripe", container.WebhookHandler.HandleStripeWebhook)

		// Public availability polling during on-sale
		v1.GET("/tiers/:id/availability", container.EventHandler.GetTierAvailability)

		authed := v1.Group("")
		authed.Use(middleware.JWTMiddleware(&middleware.JWTConfig{
			Secret: cfg.JWT.Secret,
		}))

		idempotencyConfig := middleware.DefaultIdempotencyConfig(redisClient.Client())
		idempotencyConfig.SkipPaths = []string{"/health", "/ready"}
		idem := middleware.IdempotencyMiddleware(idempotencyConfig)

		registrations := authed.Group("/registrations")
		{
			registrations.POST("", idem, container.RegistrationHandler.CreateRegistration)
			registrations.GET("", container.RegistrationHandler.GetUserRegistrations)
			registrations.GET("/:id", container.RegistrationHandler.GetRegistration)
			registrations.POST("/:id/confirm", idem, container.RegistrationHandler.ConfirmPayment)
			registrations.POST("/:id/cancel", idem, container.RegistrationHandler.CancelRegistration)
			registrations.POST("/:id/checkin", container.RegistrationHandler.CheckIn)
		}

		events := authed.Group("/events")
		{
			events.POST("", container.EventHandler.CreateEvent)
			events.GET("", container.EventHandler.GetOrganizerEvents)
			events.GET("/:id", container.EventHandler.GetEvent)
			events.PUT("/:id", container.EventHandler.UpdateEvent)
			events.DELETE("/:id", container.EventHandler.DeleteEvent)
			events.POST("/:id/publish", container.EventHandler.PublishEvent)
			events.POST("/:id/cancel", container.EventHandler.CancelEvent)
			events.POST("/:id/complete", container.EventHandler.CompleteEvent)
			events.POST("/:id/tiers", container.EventHandler.CreateTier)
			events.GET("/:id/tiers", container.EventHandler.GetEventTiers)
		}

		tiers := authed.Group("/tiers")
		{
			tiers.PUT("/:id", container.EventHandler.UpdateTier)
			tiers.DELETE("/:id", container.EventHandler.DeleteTier)
		}
	}

	// Background expiry sweep returns lapsed holds to availability
	workerCtx, workerCancel := context.WithCancel(ctx)
	defer workerCancel()
	if err := container.ExpiryWorker.Start(workerCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start expiry worker: %v", err))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Ticketing service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	container.ExpiryWorker.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
