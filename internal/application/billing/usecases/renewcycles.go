package usecases

import (
	"context"
	"fmt"
	"time"

	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
	"tollgate/internal/shared/biztime"
	apperrors "tollgate/internal/shared/errors"
	"tollgate/internal/shared/logger"
)

// RenewCyclesUseCase is the second daily reconciliation pass: tacit renewal.
// Organizations whose monthly cycle has ended without any pending change get
// a cycle invoice for the finished window and a fresh cycle on the same plan.
type RenewCyclesUseCase struct {
	orgRepo  organization.Repository
	planRepo plan.Repository
	invoices billing.InvoiceGenerator
	txMgr    TransactionRunner
	logger   logger.Interface
	now      func() time.Time
}

func NewRenewCyclesUseCase(
	orgRepo organization.Repository,
	planRepo plan.Repository,
	invoices billing.InvoiceGenerator,
	txMgr TransactionRunner,
	logger logger.Interface,
) *RenewCyclesUseCase {
	return &RenewCyclesUseCase{
		orgRepo:  orgRepo,
		planRepo: planRepo,
		invoices: invoices,
		txMgr:    txMgr,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

func (uc *RenewCyclesUseCase) Execute(ctx context.Context) (renewed, failed int, err error) {
	today := biztime.StartOfDayUTC(uc.now())

	orgs, err := uc.orgRepo.FindWithExpiredCycles(ctx, today)
	if err != nil {
		uc.logger.Errorw("failed to list organizations with expired cycles", "error", err)
		return 0, 0, fmt.Errorf("failed to list expired cycles: %w", err)
	}

	for _, org := range orgs {
		if err := uc.processOne(ctx, org, today); err != nil {
			failed++
			if apperrors.IsConflictError(err) {
				uc.logger.Warnw("organization snapshot changed concurrently, retrying next run",
					"organization_id", org.ID(),
				)
				continue
			}
			uc.logger.Errorw("failed to renew monthly cycle",
				"error", err,
				"organization_id", org.ID(),
			)
			continue
		}
		renewed++
	}

	return renewed, failed, nil
}

func (uc *RenewCyclesUseCase) processOne(ctx context.Context, org *organization.Organization, today time.Time) error {
	if org.HasPendingChange() || !org.HasMonthlyCycle() || org.PricingPlanID() == nil {
		return nil
	}

	current, err := uc.planRepo.GetByID(ctx, *org.PricingPlanID())
	if err != nil {
		return fmt.Errorf("failed to get current plan: %w", err)
	}
	if plan.CategoryOf(current) != plan.CategoryMonthly {
		// Stale cycle window left behind by a non-monthly plan; nothing to
		// renew or bill.
		return nil
	}

	cycleStart := *org.MonthlyPlanStartDate()
	cycleEnd := *org.MonthlyPlanEndDate()

	// Invoice and renewed window commit together; a rollback leaves the
	// expired cycle in place for tomorrow's sweep.
	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if _, err := uc.invoices.GenerateCycleInvoice(txCtx, org.ID(), current, cycleStart, cycleEnd); err != nil {
			return fmt.Errorf("failed to generate cycle invoice: %w", err)
		}

		if err := org.StartMonthlyCycle(today, organization.CycleEnd(today)); err != nil {
			return fmt.Errorf("failed to start renewed cycle: %w", err)
		}

		return uc.orgRepo.Update(txCtx, org)
	})
	if txErr != nil {
		return txErr
	}

	uc.logger.Infow("renewed monthly cycle",
		"organization_id", org.ID(),
		"plan_id", current.ID(),
		"cycle_start", today,
		"cycle_end", organization.CycleEnd(today),
	)
	return nil
}
