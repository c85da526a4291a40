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

// ResolvePayPerRequestUseCase is the third daily reconciliation pass: queued
// monthly-to-pay-per-request transitions fire at the earlier of their change
// date or quota exhaustion, whichever the daily sweep observes first.
type ResolvePayPerRequestUseCase struct {
	orgRepo  organization.Repository
	planRepo plan.Repository
	quota    QuotaChecker
	invoices billing.InvoiceGenerator
	notifier billing.NotificationSink
	txMgr    TransactionRunner
	logger   logger.Interface
	now      func() time.Time
}

func NewResolvePayPerRequestUseCase(
	orgRepo organization.Repository,
	planRepo plan.Repository,
	quota QuotaChecker,
	invoices billing.InvoiceGenerator,
	notifier billing.NotificationSink,
	txMgr TransactionRunner,
	logger logger.Interface,
) *ResolvePayPerRequestUseCase {
	return &ResolvePayPerRequestUseCase{
		orgRepo:  orgRepo,
		planRepo: planRepo,
		quota:    quota,
		invoices: invoices,
		notifier: notifier,
		txMgr:    txMgr,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

func (uc *ResolvePayPerRequestUseCase) Execute(ctx context.Context) (resolved, failed int, err error) {
	today := biztime.StartOfDayUTC(uc.now())

	orgs, err := uc.orgRepo.FindWithPendingPayPerRequest(ctx)
	if err != nil {
		uc.logger.Errorw("failed to list organizations with pending pay-per-request changes", "error", err)
		return 0, 0, fmt.Errorf("failed to list pending pay-per-request changes: %w", err)
	}

	for _, org := range orgs {
		done, err := uc.processOne(ctx, org, today)
		if err != nil {
			failed++
			if apperrors.IsConflictError(err) {
				uc.logger.Warnw("organization snapshot changed concurrently, retrying next run",
					"organization_id", org.ID(),
				)
				continue
			}
			uc.logger.Errorw("failed to resolve pending pay-per-request change",
				"error", err,
				"organization_id", org.ID(),
			)
			continue
		}
		if done {
			resolved++
		}
	}

	return resolved, failed, nil
}

func (uc *ResolvePayPerRequestUseCase) processOne(ctx context.Context, org *organization.Organization, today time.Time) (bool, error) {
	if org.PendingPayPerRequestPlanID() == nil {
		return false, nil
	}

	due := org.PendingPayPerRequestChangeDate() != nil &&
		!org.PendingPayPerRequestChangeDate().After(today)

	if !due {
		q, err := uc.quota.Execute(ctx, org.ID())
		if err != nil {
			return false, fmt.Errorf("failed to re-evaluate quota: %w", err)
		}
		if q.OK {
			// Neither trigger has fired; stays queued.
			return false, nil
		}
	}

	newPlan, err := uc.planRepo.GetByID(ctx, *org.PendingPayPerRequestPlanID())
	if err != nil {
		return false, fmt.Errorf("failed to get pending plan: %w", err)
	}
	if newPlan == nil {
		uc.logger.Warnw("pending pay-per-request plan no longer exists, clearing pending change",
			"organization_id", org.ID(),
			"pending_plan_id", *org.PendingPayPerRequestPlanID(),
		)
		org.ClearPendingChanges()
		return false, uc.orgRepo.Update(ctx, org)
	}

	var oldPlan *plan.Plan
	if org.PricingPlanID() != nil {
		oldPlan, err = uc.planRepo.GetByID(ctx, *org.PricingPlanID())
		if err != nil {
			return false, fmt.Errorf("failed to get current plan: %w", err)
		}
	}

	newPlanID := newPlan.ID()

	// Closure invoice and snapshot write commit together; on rollback the
	// pending change stays queued for the next sweep.
	txErr := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		if org.HasMonthlyCycle() {
			cycleStart := *org.MonthlyPlanStartDate()
			cycleEnd := *org.MonthlyPlanEndDate()
			if _, err := uc.invoices.GenerateClosureInvoice(txCtx, org.ID(), oldPlan, cycleStart, cycleEnd); err != nil {
				return fmt.Errorf("failed to generate cycle closure invoice: %w", err)
			}
		}

		org.AssignPlan(&newPlanID, newPlan.MonthlyQuota())
		org.ClearMonthlyCycle()
		org.MarkPayPerRequestInvoiced(today)

		return uc.orgRepo.Update(txCtx, org)
	})
	if txErr != nil {
		return false, txErr
	}

	uc.logger.Infow("resolved pending pay-per-request change",
		"organization_id", org.ID(),
		"new_plan_id", newPlanID,
		"triggered_by_date", due,
	)

	if err := uc.notifier.PlanChanged(ctx, org, oldPlan, newPlan); err != nil {
		uc.logger.Errorw("failed to send plan change notification",
			"error", err,
			"organization_id", org.ID(),
		)
	}

	return true, nil
}
