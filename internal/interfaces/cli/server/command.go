// Package server implements the HTTP server command.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/infrastructure/cache"
	"tollgate/internal/infrastructure/config"
	"tollgate/internal/infrastructure/database"
	"tollgate/internal/infrastructure/identity"
	"tollgate/internal/infrastructure/invoicing"
	"tollgate/internal/infrastructure/notification"
	"tollgate/internal/infrastructure/persistence"
	"tollgate/internal/infrastructure/repository"
	"tollgate/internal/infrastructure/scheduler"
	httpRouter "tollgate/internal/interfaces/http"
	"tollgate/internal/interfaces/http/handlers"
	"tollgate/internal/shared/biztime"
	"tollgate/internal/shared/db"
	"tollgate/internal/shared/goroutine"
	"tollgate/internal/shared/logger"
)

var (
	env         string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Tollgate HTTP server with the daily reconciliation scheduler.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	log := logger.NewLogger()
	log.Infow("starting server", "environment", env, "auto_migrate", autoMigrate)

	biztime.MustInit(cfg.Billing.Timezone)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {}

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer database.Close()

	if autoMigrate {
		if env == "production" {
			return fmt.Errorf("auto-migrate is not allowed in production")
		}
		if err := persistence.AutoMigrate(database.Get()); err != nil {
			logger.Fatal("failed to run migrations", "error", err)
		}
		log.Infow("database migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	log.Infow("redis connection established", "address", cfg.Redis.GetAddr())

	// Repositories
	txMgr := db.NewTransactionManager(database.Get())
	orgRepo := repository.NewOrganizationRepository(database.Get(), log)
	planRepo := repository.NewPricingPlanRepository(database.Get(), log)
	invoiceRepo := repository.NewInvoiceRepository(database.Get(), log)
	usageRepo := repository.NewUsageRepository(database.Get(), log)

	// Request-time quota reads go through the short-TTL cache; the
	// reconciliation passes read straight from the database.
	cachedUsage := cache.NewCachedUsageCounter(
		redisClient,
		usageRepo,
		time.Duration(cfg.Billing.UsageCacheTTLSeconds)*time.Second,
		log,
	)

	// Collaborators
	invoiceGen := invoicing.NewGenerator(invoiceRepo, usageRepo, log)
	identityProvider := identity.NewProvider(database.Get(), log)
	notifier := notification.NewEmailNotifier(cfg.Email, log)

	// Use cases
	cachedQuotaUC := usecases.NewCheckQuotaUseCase(orgRepo, planRepo, cachedUsage, log)
	directQuotaUC := usecases.NewCheckQuotaUseCase(orgRepo, planRepo, usageRepo, log)
	trialExpiryUC := usecases.NewTrialExpiryUseCase(orgRepo, planRepo, usageRepo, identityProvider, log)
	changePlanUC := usecases.NewChangePlanUseCase(orgRepo, planRepo, directQuotaUC, invoiceGen, identityProvider, notifier, log)
	recordUsageUC := usecases.NewRecordUsageUseCase(orgRepo, usageRepo, cachedUsage, cachedQuotaUC, log)
	getOrgUC := usecases.NewGetOrganizationUseCase(orgRepo, log)
	listPlansUC := usecases.NewListActivePlansUseCase(planRepo, log)
	listInvoicesUC := usecases.NewListInvoicesUseCase(orgRepo, invoiceRepo, log)

	dueChangesUC := usecases.NewApplyDueMonthlyChangesUseCase(orgRepo, planRepo, invoiceGen, notifier, txMgr, log)
	renewCyclesUC := usecases.NewRenewCyclesUseCase(orgRepo, planRepo, invoiceGen, txMgr, log)
	resolvePPRUC := usecases.NewResolvePayPerRequestUseCase(orgRepo, planRepo, directQuotaUC, invoiceGen, notifier, txMgr, log)
	reconcileUC := usecases.NewRunDailyReconciliationUseCase(dueChangesUC, renewCyclesUC, resolvePPRUC, log)

	// Scheduler
	schedManager, err := scheduler.NewManager(log)
	if err != nil {
		logger.Fatal("failed to create scheduler", "error", err)
	}
	if err := schedManager.RegisterReconciliationJob(reconcileUC, cfg.Billing.ReconcileHour); err != nil {
		logger.Fatal("failed to register reconciliation job", "error", err)
	}
	schedManager.Start()
	defer func() {
		if err := schedManager.Stop(); err != nil {
			log.Errorw("failed to stop scheduler", "error", err)
		}
	}()

	// HTTP surface
	orgHandler := handlers.NewOrganizationHandler(
		cachedQuotaUC, trialExpiryUC, changePlanUC, recordUsageUC, getOrgUC, listInvoicesUC, log)
	planHandler := handlers.NewPlanHandler(listPlansUC, log)
	adminHandler := handlers.NewAdminHandler(reconcileUC, log)

	router := httpRouter.NewRouter(orgHandler, planHandler, adminHandler, log)
	router.SetupRoutes(cfg)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	goroutine.SafeGo(log, "http-server", func() {
		log.Infow("server starting", "address", cfg.Server.GetAddr(), "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", "error", err)
		}
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
		return err
	}

	log.Infow("server exited gracefully")
	return nil
}
