package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/repair-service/internal/api/http"
	"github.com/spec-kit/repair-service/internal/api/http/handlers"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/config"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/notify"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/persistence"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/service"
	"github.com/spec-kit/repair-service/internal/storage"
	"github.com/spec-kit/repair-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	// Redis is only needed as a notification sink.
	var rdb *persistence.Redis
	if cfg.Notification.Sink == config.SinkRedis {
		rdb = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()
	}

	ticketRepo, historyRepo, userRepo := repositories(pg)

	metrics := observability.NewMetrics()
	metrics.RecordBuildInfo(cfg.App.Version)

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier, err := notify.New(cfg.Notification, rdb.ClientHandle(), logger)
	if err != nil {
		logger.Error("failed to build notifier", zap.Error(err))
		return err
	}
	worker.StartNotificationWorker(ctx, service.NewNotificationService(dispatcher, notifier, logger), logger)

	files, err := storage.NewLocalStorage(cfg.Storage)
	if err != nil {
		logger.Error("failed to prepare storage", zap.Error(err))
		return err
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: userRepo})
	if err := seedAdmin(ctx, cfg.Auth, authService, logger); err != nil {
		logger.Error("failed to seed admin", zap.Error(err))
		return err
	}
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		HistoryRepo: historyRepo,
		Storage:     files,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: bodyLimit(cfg.Storage),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Lifecycle:      handlers.NewLifecycleHandler(ticketService),
		Attachments:    handlers.NewAttachmentsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo),
		Metrics:        metrics.Handler(),
		FilesPrefix:    cfg.Storage.PublicBaseURL,
		FilesDir:       files.Dir(),
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-listenErr:
		logger.Error("fiber listen", zap.Error(err))
		return err
	case <-waitForShutdown(logger):
	}

	cancel()
	return app.ShutdownWithTimeout(shutdownTimeout)
}

func repositories(pg *persistence.Postgres) (repository.TicketRepository, repository.TicketHistoryRepository, repository.UserRepository) {
	if !pg.Enabled() {
		return repository.NewMemoryTicketRepository(),
			repository.NewMemoryTicketHistoryRepository(),
			repository.NewMemoryUserRepository()
	}
	pool := pg.PoolHandle()
	return repository.NewTicketRepository(pool),
		repository.NewTicketHistoryRepository(pool),
		repository.NewUserRepository(pool)
}

func seedAdmin(ctx context.Context, cfg config.AuthConfig, authService *service.AuthService, logger *zap.Logger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	created, err := authService.EnsureUser(ctx, service.CreateUserInput{
		Name:     "Administrator",
		Email:    cfg.BootstrapAdminEmail,
		Password: cfg.BootstrapAdminPassword,
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("email", cfg.BootstrapAdminEmail))
	}
	return nil
}

// bodyLimit leaves room for several evidence files in one self-approval.
func bodyLimit(cfg config.StorageConfig) int {
	const minLimit = 4 << 20
	limit := int(cfg.MaxUploadBytes) * 5
	if limit < minLimit {
		return minLimit
	}
	return limit
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
