// Package reconcile implements the one-shot reconciliation command. It runs
// the same three passes as the daily scheduled job and exits, which makes it
// suitable for catch-up after an outage or for cron-driven deployments.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/infrastructure/config"
	"tollgate/internal/infrastructure/database"
	"tollgate/internal/infrastructure/invoicing"
	"tollgate/internal/infrastructure/notification"
	"tollgate/internal/infrastructure/repository"
	"tollgate/internal/shared/biztime"
	"tollgate/internal/shared/db"
	"tollgate/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run the daily reconciliation once and exit",
		Long: `Apply due monthly plan changes, renew expired cycles and resolve pending
pay-per-request switches. Every pass is idempotent, so repeated runs are safe.`,
		RunE: run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

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

	biztime.MustInit(cfg.Billing.Timezone)

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	txMgr := db.NewTransactionManager(database.Get())
	orgRepo := repository.NewOrganizationRepository(database.Get(), log)
	planRepo := repository.NewPricingPlanRepository(database.Get(), log)
	invoiceRepo := repository.NewInvoiceRepository(database.Get(), log)
	usageRepo := repository.NewUsageRepository(database.Get(), log)

	invoiceGen := invoicing.NewGenerator(invoiceRepo, usageRepo, log)
	notifier := notification.NewEmailNotifier(cfg.Email, log)

	quotaUC := usecases.NewCheckQuotaUseCase(orgRepo, planRepo, usageRepo, log)
	dueChangesUC := usecases.NewApplyDueMonthlyChangesUseCase(orgRepo, planRepo, invoiceGen, notifier, txMgr, log)
	renewCyclesUC := usecases.NewRenewCyclesUseCase(orgRepo, planRepo, invoiceGen, txMgr, log)
	resolvePPRUC := usecases.NewResolvePayPerRequestUseCase(orgRepo, planRepo, quotaUC, invoiceGen, notifier, txMgr, log)
	reconcileUC := usecases.NewRunDailyReconciliationUseCase(dueChangesUC, renewCyclesUC, resolvePPRUC, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	summary := reconcileUC.Execute(ctx)

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if summary.Failures > 0 {
		return fmt.Errorf("reconciliation finished with %d failures", summary.Failures)
	}
	return nil
}
