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

// TransactionRunner bounds the writes of a reconciliation step that must
// commit together. Satisfied by db.TransactionManager.
type TransactionRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ApplyDueMonthlyChangesUseCase is the first daily reconciliation pass: it
// applies queued monthly-to-monthly plan changes whose change date has
// arrived, closing the old cycle with an invoice and opening a fresh cycle on
// the new plan. Organizations are processed independently; one failure never
// aborts the sweep.
type ApplyDueMonthlyChangesUseCase struct {
	orgRepo  organization.Repository
	planRepo plan.Repository
	invoices billing.InvoiceGenerator
	notifier billing.NotificationSink
	txMgr    TransactionRunner
	logger   logger.Interface
	now      func() time.Time
}

func NewApplyDueMonthlyChangesUseCase(
	orgRepo organization.Repository,
	planRepo plan.Repository,
	invoices billing.InvoiceGenerator,
	notifier billing.NotificationSink,
	txMgr TransactionRunner,
	logger logger.Interface,
) *ApplyDueMonthlyChangesUseCase {
	return &ApplyDueMonthlyChangesUseCase{
		orgRepo:  orgRepo,
		planRepo: planRepo,
		invoices: invoices,
		notifier: notifier,
		txMgr:    txMgr,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

// Execute returns how many organizations had their pending change applied and
// how many failed and were left for the next run.
func (uc *ApplyDueMonthlyChangesUseCase) Execute(ctx context.Context) (applied, failed int, err error) {
	today := biztime.StartOfDayUTC(uc.now())

	orgs, err := uc.orgRepo.FindWithDueMonthlyChanges(ctx, today)
	if err != nil {
		uc.logger.Errorw("failed to list organizations with due monthly changes", "error", err)
		return 0, 0, fmt.Errorf("failed to list due monthly changes: %w", err)
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
			uc.logger.Errorw("failed to apply due monthly change",
				"error", err,
				"organization_id", org.ID(),
			)
			continue
		}
		applied++
	}

	return applied, failed, nil
}

func (uc *ApplyDueMonthlyChangesUseCase) processOne(ctx context.Context, org *organization.Organization, today time.Time) error {
	if org.PendingMonthlyPlanID() == nil || !org.HasMonthlyCycle() {
		return nil
	}

	newPlan, err := uc.planRepo.GetByID(ctx, *org.PendingMonthlyPlanID())
	if err != nil {
		return fmt.Errorf("failed to get pending plan: %w", err)
	}
	if newPlan == nil {
		// Pending plan removed from the catalog; drop the stale pending
		// change so the organization is not re-swept forever.
		uc.logger.Warnw("pending monthly plan no longer exists, clearing pending change",
			"organization_id", org.ID(),
			"pending_plan_id", *org.PendingMonthlyPlanID(),
		)
		org.ClearPendingChanges()
		return uc.orgRepo.Update(ctx, org)
	}

	var oldPlan *plan.Plan
	if org.PricingPlanID() != nil {
		oldPlan, err = uc.planRepo.GetByID(ctx, *org.PricingPlanID())
		if err != nil {
			return fmt.Errorf("failed to get current plan: %w", err)
		}
	}

	cycleStart := *org.MonthlyPlanStartDate()
	cycleEnd := *org.MonthlyPlanEndDate()
	newPlanID := newPlan.ID()

	// The closure invoice and the snapshot write commit together: a failure
	// of either rolls both back, the pending change stays queued, and the
	// organization is retried tomorrow. The period existence guard keeps
	// re-runs from double-billing.
	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if _, err := uc.invoices.GenerateClosureInvoice(txCtx, org.ID(), oldPlan, cycleStart, cycleEnd); err != nil {
			return fmt.Errorf("failed to generate cycle closure invoice: %w", err)
		}

		org.AssignPlan(&newPlanID, newPlan.MonthlyQuota())
		if err := org.StartMonthlyCycle(today, organization.CycleEnd(today)); err != nil {
			return fmt.Errorf("failed to start renewed cycle: %w", err)
		}

		return uc.orgRepo.Update(txCtx, org)
	})
	if txErr != nil {
		return txErr
	}

	uc.logger.Infow("applied due monthly plan change",
		"organization_id", org.ID(),
		"new_plan_id", newPlanID,
		"cycle_start", today,
	)

	if err := uc.notifier.PlanChanged(ctx, org, oldPlan, newPlan); err != nil {
		uc.logger.Errorw("failed to send plan change notification",
			"error", err,
			"organization_id", org.ID(),
		)
	}

	return nil
}
