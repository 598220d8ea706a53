package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/claim-service/internal/api/http"
	"github.com/spec-kit/claim-service/internal/api/http/handlers"
	"github.com/spec-kit/claim-service/internal/auth"
	"github.com/spec-kit/claim-service/internal/config"
	"github.com/spec-kit/claim-service/internal/events"
	"github.com/spec-kit/claim-service/internal/observability"
	"github.com/spec-kit/claim-service/internal/persistence"
	"github.com/spec-kit/claim-service/internal/policy"
	"github.com/spec-kit/claim-service/internal/repository"
	"github.com/spec-kit/claim-service/internal/service"
	"github.com/spec-kit/claim-service/internal/storage"
	"github.com/spec-kit/claim-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
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

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	claimRepo := repository.NewClaimRepository(pool)
	lecturerRepo := repository.NewLecturerRepository(pool)
	auditRepo := repository.NewClaimAuditRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	attachments := storage.NewAttachmentStore(cfg.Storage.AttachmentRoot)

	bounds := policy.Bounds{
		MaxHoursPerMonth:     cfg.Policy.MaxHoursPerMonth,
		MinHourlyRate:        cfg.Policy.MinHourlyRate,
		MaxHourlyRate:        cfg.Policy.MaxHourlyRate,
		AutoApproveThreshold: cfg.Policy.AutoApproveThreshold,
	}

	claimService := service.NewClaimService(service.ClaimDependencies{
		ClaimRepo:    claimRepo,
		LecturerRepo: lecturerRepo,
		AuditRepo:    auditRepo,
		Attachments:  attachments,
		Bounds:       bounds,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	lecturerService := service.NewLecturerService(lecturerRepo, dispatcher, logger)
	reportService := service.NewReportService(claimRepo, persistence.NewReportCache(redis), cfg.Report.SummaryCacheTTL(), logger)
	reportService.RegisterInvalidation(dispatcher)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		AccountRepo:       accountRepo,
		PasswordResetRepo: resetRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), accountRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: int(storage.MaxAttachmentBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Accounts:       handlers.NewAccountsHandler(authService),
		Claims:         handlers.NewClaimsHandler(claimService),
		Review:         handlers.NewReviewHandler(claimService),
		HR:             handlers.NewHRHandler(reportService),
		Lecturers:      handlers.NewLecturersHandler(lecturerService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
