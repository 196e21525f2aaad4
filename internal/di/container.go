package di

import (
	"github.com/attendly/ticketing/internal/gateway"
	"github.com/attendly/ticketing/internal/handler"
	"github.com/attendly/ticketing/internal/repository"
	"github.com/attendly/ticketing/internal/service"
	"github.com/attendly/ticketing/internal/worker"
	"github.com/attendly/ticketing/pkg/config"
	"github.com/attendly/ticketing/pkg/database"
	"github.com/attendly/ticketing/pkg/redis"
)

// Container holds all dependencies for the ticketing service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	EventRepo        repository.EventRepository
	TierRepo         repository.TierRepository
	RegistrationRepo repository.RegistrationRepository

	// Gateways and publishers
	PaymentGateway gateway.PaymentGateway
	EventPublisher service.EventPublisher

	// Services
	RegistrationService service.RegistrationService
	EventService        service.EventService
	CheckInService      service.CheckInService

	// Handlers
	HealthHandler       *handler.HealthHandler
	RegistrationHandler *handler.RegistrationHandler
	EventHandler        *handler.EventHandler
	WebhookHandler      *handler.WebhookHandler

	// Workers
	ExpiryWorker *worker.ExpiryWorker
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB             *database.PostgresDB
	Redis          *redis.Client
	PaymentGateway gateway.PaymentGateway
	EventPublisher service.EventPublisher
	Registration   *config.RegistrationConfig
	WebhookSecret  string
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		PaymentGateway: cfg.PaymentGateway,
		EventPublisher: cfg.EventPublisher,
	}

	// Repositories
	pool := cfg.DB.Pool()
	c.EventRepo = repository.NewPostgresEventRepository(pool)
	c.TierRepo = repository.NewPostgresTierRepository(pool)
	c.RegistrationRepo = repository.NewPostgresRegistrationRepository(pool)

	// Services
	svcCfg := &service.RegistrationServiceConfig{}
	if cfg.Registration != nil {
		svcCfg.ReservationTTL = cfg.Registration.ReservationTTL
		svcCfg.MaxPerOrder = cfg.Registration.MaxTicketsPerOrder
	}
	c.RegistrationService = service.NewRegistrationService(
		c.RegistrationRepo,
		c.TierRepo,
		c.EventRepo,
		c.PaymentGateway,
		c.EventPublisher,
		svcCfg,
	)
	c.EventService = service.NewEventService(c.EventRepo, c.TierRepo)
	c.CheckInService = service.NewCheckInService(c.RegistrationRepo, c.EventPublisher)

	// Handlers
	c.HealthHandler = handler.NewHealthHandler(c.DB, c.Redis)
	c.RegistrationHandler = handler.NewRegistrationHandler(c.RegistrationService, c.CheckInService)
	c.EventHandler = handler.NewEventHandler(c.EventService, c.RegistrationService)
	c.WebhookHandler = handler.NewWebhookHandler(c.RegistrationService, cfg.WebhookSecret)

	// Workers
	workerCfg := worker.DefaultExpiryWorkerConfig()
	if cfg.Registration != nil {
		if cfg.Registration.ExpiryScanInterval > 0 {
			workerCfg.ScanInterval = cfg.Registration.ExpiryScanInterval
		}
		if cfg.Registration.ExpiryBatchSize > 0 {
			workerCfg.BatchSize = cfg.Registration.ExpiryBatchSize
		}
	}
	c.ExpiryWorker = worker.NewExpiryWorker(c.RegistrationService, workerCfg)

	return c
}
