package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/spec-kit/spark-support/assets"
	httptransport "github.com/spec-kit/spark-support/internal/api/http"
	"github.com/spec-kit/spark-support/internal/api/http/handlers"
	"github.com/spec-kit/spark-support/internal/auth"
	"github.com/spec-kit/spark-support/internal/config"
	"github.com/spec-kit/spark-support/internal/domain"
	"github.com/spec-kit/spark-support/internal/events"
	"github.com/spec-kit/spark-support/internal/observability"
	"github.com/spec-kit/spark-support/internal/persistence"
	"github.com/spec-kit/spark-support/internal/repository"
	"github.com/spec-kit/spark-support/internal/service"
	"github.com/spec-kit/spark-support/internal/session"
	"github.com/spec-kit/spark-support/internal/sparkai"
	"github.com/spec-kit/spark-support/internal/worker"
)

func main() {
	envFile := pflag.String("env-file", "", "dotenv file to load (default .env when present)")
	ticketsPath := pflag.String("tickets", "", "ticket dataset file, overrides TICKETS_PATH")
	port := pflag.String("port", "", "listen port, overrides APP_PORT")
	pflag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *ticketsPath != "" {
		cfg.Dataset.TicketsPath = *ticketsPath
	}
	if *port != "" {
		cfg.App.Port = *port
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	pool := pg.PoolHandle()
	if pool != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pool, cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	tickets, err := loadTickets(cfg.Dataset)
	if err != nil {
		logger.Fatal("failed to load tickets", zap.Error(err))
	}
	if count := len(tickets.List()); count == 0 {
		logger.Warn("ticket dataset is empty; lookups will not match")
	} else {
		logger.Info("tickets loaded", zap.Int("count", count))
	}

	var demo *domain.Ticket
	if t, err := service.DemoTicket(cfg.Dataset, assets.DemoTicket); err != nil {
		logger.Warn("demo ticket unavailable", zap.Error(err))
	} else {
		demo = &t
	}

	var (
		changeRepo repository.TicketChangeRepository
		deviceRepo repository.DeviceRepository
	)
	deps := map[string]handlers.Pinger{}
	if pool != nil {
		changeRepo = repository.NewTicketChangeRepository(pool)
		deviceRepo = repository.NewDeviceRepository(pool)
		deps["postgres"] = pg
	} else {
		deviceRepo = repository.NewMemoryDeviceRepository()
	}

	var sessionStore session.Store = session.NewMemoryStore()
	if redis.Enabled() {
		sessionStore = session.NewRedisStore(redis.Client)
		deps["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	var export events.EventHandler
	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.TicketEventsTopic)
		defer publisher.Close() //nolint:errcheck
		exporter := worker.NewAsyncHandler("kafka", publisher.Handle, 256, 10*time.Second, logger)
		defer exporter.Close()
		export = exporter.Handle
		logger.Info("ticket change export enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.TicketEventsTopic))
	}
	worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Logger:      logger,
		HistoryRepo: changeRepo,
		Export:      export,
	}))

	metrics := observability.NewMetrics()
	client := sparkai.NewClient(cfg.Endpoints, logger, sparkai.WithMetrics(metrics))
	for name, configured := range client.Configured() {
		if !configured {
			logger.Warn("endpoint not configured", zap.String("endpoint", name))
		}
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: tickets,
		ChangeRepo: changeRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assistantService := service.NewAssistantService(service.AssistantDependencies{
		Client:         client,
		Tickets:        tickets,
		Sessions:       session.NewProvider(sessionStore, logger),
		Logger:         logger,
		RenderMarkdown: cfg.Endpoints.RenderMarkdownAnswers,
		Demo:           demo,
	})
	if ttl := cfg.App.ConversationIdleTTL(); ttl > 0 {
		interval := ttl / 4
		if interval < time.Minute {
			interval = time.Minute
		}
		worker.StartSweeper(ctx, "conversations", interval, func(now time.Time) int {
			return assistantService.SweepIdle(now, ttl)
		}, logger)
	}
	authService := service.NewAuthService(*cfg, service.AuthDependencies{DeviceRepo: deviceRepo})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), cfg.Auth.Required)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, client.Configured, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Conversations:  handlers.NewConversationsHandler(assistantService),
		Assistant:      handlers.NewAssistantHandler(assistantService, service.NewTranslateService(client, logger), service.NewUpgradeService(client, logger)),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
}

func loadTickets(cfg config.DatasetConfig) (repository.TicketRepository, error) {
	if cfg.TicketsPath != "" {
		return repository.NewTicketRepositoryFromFile(cfg.TicketsPath)
	}
	return repository.NewTicketRepositoryFromBytes(assets.Tickets, repository.FormatJSON)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
