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

// ChangePlanCommand requests a plan change for an organization. A nil
// NewPlanID removes the active plan.
type ChangePlanCommand struct {
	OrganizationID uint
	NewPlanID      *uint
}

// transitionKind tells how a requested plan change takes effect.
type transitionKind int

const (
	// applyNow switches the active plan immediately.
	applyNow transitionKind = iota
	// deferMonthly queues the change until the current cycle ends.
	deferMonthly
	// deferPayPerRequest queues the change until the earlier of cycle end
	// or quota exhaustion (resolved by the daily reconciliation).
	deferPayPerRequest
)

// transition is the strategy selected by the decision table: how to apply
// the change and which billing periods to close on the way.
type transition struct {
	kind                     transitionKind
	closeMonthlyCycle        bool
	closePayPerRequestPeriod bool
}

// decideTransition is the explicit match over (old, new) plan categories.
// Overage only matters for the monthly to pay-per-request case, where it
// promotes the deferred transition to an immediate one.
func decideTransition(oldCat, newCat plan.Category, overage bool) transition {
	switch {
	case newCat == plan.CategoryTrial:
		// Trial assignment is always immediate; reuse is rejected upstream.
		return transition{kind: applyNow, closeMonthlyCycle: oldCat == plan.CategoryMonthly,
			closePayPerRequestPeriod: oldCat == plan.CategoryPayPerRequest}

	case oldCat == plan.CategoryUnassigned, oldCat == plan.CategoryTrial:
		return transition{kind: applyNow}

	case oldCat == plan.CategoryMonthly && newCat == plan.CategoryMonthly:
		return transition{kind: deferMonthly}

	case oldCat == plan.CategoryMonthly && newCat == plan.CategoryPayPerRequest:
		if overage {
			return transition{kind: applyNow, closeMonthlyCycle: true}
		}
		return transition{kind: deferPayPerRequest}

	case oldCat == plan.CategoryMonthly:
		// Dropping to no plan still closes the running cycle.
		return transition{kind: applyNow, closeMonthlyCycle: true}

	case newCat == plan.CategoryMonthly:
		return transition{kind: applyNow, closePayPerRequestPeriod: true}

	case newCat == plan.CategoryPayPerRequest:
		// Rate change only, no invoice.
		return transition{kind: applyNow}

	default:
		return transition{kind: applyNow, closePayPerRequestPeriod: true}
	}
}

// ChangePlanUseCase orchestrates plan changes: it applies them immediately or
// records a pending transition, emits closure invoices, reactivates members
// previously blocked by trial expiry, and notifies the organization.
// Collaborator failures after the snapshot write are logged, never fatal.
type ChangePlanUseCase struct {
	orgRepo  organization.Repository
	planRepo plan.Repository
	quota    QuotaChecker
	invoices billing.InvoiceGenerator
	identity billing.IdentityProvider
	notifier billing.NotificationSink
	logger   logger.Interface
	now      func() time.Time
}

func NewChangePlanUseCase(
	orgRepo organization.Repository,
	planRepo plan.Repository,
	quota QuotaChecker,
	invoices billing.InvoiceGenerator,
	identity billing.IdentityProvider,
	notifier billing.NotificationSink,
	logger logger.Interface,
) *ChangePlanUseCase {
	return &ChangePlanUseCase{
		orgRepo:  orgRepo,
		planRepo: planRepo,
		quota:    quota,
		invoices: invoices,
		identity: identity,
		notifier: notifier,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

func (uc *ChangePlanUseCase) Execute(ctx context.Context, cmd ChangePlanCommand) (*organization.Organization, error) {
	org, err := uc.orgRepo.GetByID(ctx, cmd.OrganizationID)
	if err != nil {
		uc.logger.Errorw("failed to get organization", "error", err, "organization_id", cmd.OrganizationID)
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, apperrors.NewNotFoundError("organization not found")
	}
	if !org.Enabled() {
		return nil, apperrors.NewValidationError("organization is disabled")
	}

	var oldPlan *plan.Plan
	if org.PricingPlanID() != nil {
		oldPlan, err = uc.planRepo.GetByID(ctx, *org.PricingPlanID())
		if err != nil {
			uc.logger.Errorw("failed to get current plan", "error", err, "plan_id", *org.PricingPlanID())
			return nil, fmt.Errorf("failed to get current plan: %w", err)
		}
	}

	var newPlan *plan.Plan
	if cmd.NewPlanID != nil {
		newPlan, err = uc.planRepo.GetByID(ctx, *cmd.NewPlanID)
		if err != nil {
			uc.logger.Errorw("failed to get new plan", "error", err, "plan_id", *cmd.NewPlanID)
			return nil, fmt.Errorf("failed to get new plan: %w", err)
		}
		if newPlan == nil {
			return nil, apperrors.NewNotFoundError("pricing plan not found")
		}
		if !newPlan.IsActive() {
			return nil, apperrors.NewValidationError("pricing plan is not active")
		}
	}

	oldCat := plan.CategoryOf(oldPlan)
	newCat := plan.CategoryOf(newPlan)

	if newCat == plan.CategoryTrial && org.HasConsumedTrial() {
		return nil, apperrors.NewValidationError("trial already consumed",
			"an organization may activate a trial at most once")
	}

	overage := false
	if oldCat == plan.CategoryMonthly && newCat == plan.CategoryPayPerRequest {
		q, err := uc.quota.Execute(ctx, org.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate quota for plan change: %w", err)
		}
		overage = !q.OK
	}

	t := decideTransition(oldCat, newCat, overage)

	switch t.kind {
	case deferMonthly:
		if err := uc.deferChange(ctx, org, newPlan, false); err != nil {
			return nil, err
		}

	case deferPayPerRequest:
		if err := uc.deferChange(ctx, org, newPlan, true); err != nil {
			return nil, err
		}

	default:
		if err := uc.applyImmediately(ctx, org, oldPlan, newPlan, t); err != nil {
			return nil, err
		}
	}

	if err := uc.notifier.PlanChanged(ctx, org, oldPlan, newPlan); err != nil {
		uc.logger.Errorw("failed to send plan change notification",
			"error", err,
			"organization_id", org.ID(),
		)
	}

	return org, nil
}

func (uc *ChangePlanUseCase) deferChange(ctx context.Context, org *organization.Organization, newPlan *plan.Plan, payPerRequest bool) error {
	if !org.HasMonthlyCycle() {
		return apperrors.NewValidationError("organization has no active monthly cycle")
	}
	changeDate := *org.MonthlyPlanEndDate()

	var err error
	if payPerRequest {
		err = org.SchedulePayPerRequestChange(newPlan.ID(), changeDate)
	} else {
		err = org.ScheduleMonthlyChange(newPlan.ID(), changeDate)
	}
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	if err := uc.orgRepo.Update(ctx, org); err != nil {
		uc.logger.Errorw("failed to record pending plan change",
			"error", err,
			"organization_id", org.ID(),
		)
		return fmt.Errorf("failed to record pending plan change: %w", err)
	}

	uc.logger.Infow("plan change deferred",
		"organization_id", org.ID(),
		"new_plan_id", newPlan.ID(),
		"change_date", changeDate,
		"pay_per_request", payPerRequest,
	)
	return nil
}

func (uc *ChangePlanUseCase) applyImmediately(ctx context.Context, org *organization.Organization,
	oldPlan, newPlan *plan.Plan, t transition) error {

	today := biztime.StartOfDayUTC(uc.now())

	// Capture closing periods before the snapshot is mutated.
	var cycleStart, cycleEnd time.Time
	closeCycle := t.closeMonthlyCycle && org.HasMonthlyCycle()
	if closeCycle {
		cycleStart = *org.MonthlyPlanStartDate()
		cycleEnd = *org.MonthlyPlanEndDate()
	}

	var pprStart time.Time
	if t.closePayPerRequestPeriod {
		if org.LastPayPerRequestInvoiceDate() != nil {
			pprStart = *org.LastPayPerRequestInvoiceDate()
		} else {
			pprStart = biztime.StartOfDayUTC(org.CreatedAt())
		}
	}

	wasTrialBlocked := org.TrialPermanentlyExpired()

	if err := uc.applyPlanNow(org, plan.CategoryOf(oldPlan), newPlan, today); err != nil {
		return err
	}

	if err := uc.orgRepo.Update(ctx, org); err != nil {
		uc.logger.Errorw("failed to update organization snapshot",
			"error", err,
			"organization_id", org.ID(),
		)
		return fmt.Errorf("failed to update organization snapshot: %w", err)
	}

	uc.logger.Infow("plan changed immediately",
		"organization_id", org.ID(),
		"old_category", plan.CategoryOf(oldPlan),
		"new_category", plan.CategoryOf(newPlan),
	)

	// Side effects past this point must not undo the committed change.
	if closeCycle {
		if _, err := uc.invoices.GenerateClosureInvoice(ctx, org.ID(), oldPlan, cycleStart, cycleEnd); err != nil {
			uc.logger.Errorw("failed to generate cycle closure invoice",
				"error", err,
				"organization_id", org.ID(),
			)
		}
	}

	if t.closePayPerRequestPeriod {
		if _, err := uc.invoices.GenerateClosureInvoice(ctx, org.ID(), oldPlan, pprStart, today); err != nil {
			uc.logger.Errorw("failed to generate pay-per-request closure invoice",
				"error", err,
				"organization_id", org.ID(),
			)
		}
	}

	if wasTrialBlocked && plan.CategoryOf(newPlan).IsPaid() {
		if err := uc.identity.ReactivateAllMembers(ctx, org.ID()); err != nil {
			uc.logger.Errorw("failed to reactivate member accounts",
				"error", err,
				"organization_id", org.ID(),
			)
		}
	}

	return nil
}

// applyPlanNow mutates the snapshot for an immediate plan change: active plan
// and mirrored quota, cycle dates reinitialized or cleared, and every
// pending-change field dropped.
func (uc *ChangePlanUseCase) applyPlanNow(org *organization.Organization, oldCat plan.Category, newPlan *plan.Plan, today time.Time) error {
	if newPlan == nil {
		org.AssignPlan(nil, nil)
		org.ClearMonthlyCycle()
		return nil
	}

	id := newPlan.ID()
	switch newPlan.Category() {
	case plan.CategoryTrial:
		days := 0
		if newPlan.TrialPeriodDays() != nil {
			days = *newPlan.TrialPeriodDays()
		}
		expiresAt := uc.now().AddDate(0, 0, days)
		if err := org.StartTrial(id, newPlan.MonthlyQuota(), expiresAt); err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		org.ClearMonthlyCycle()

	case plan.CategoryMonthly:
		org.AssignPlan(&id, newPlan.MonthlyQuota())
		if err := org.StartMonthlyCycle(today, organization.CycleEnd(today)); err != nil {
			return fmt.Errorf("failed to start monthly cycle: %w", err)
		}

	case plan.CategoryPayPerRequest:
		org.AssignPlan(&id, newPlan.MonthlyQuota())
		org.ClearMonthlyCycle()
		// Watermark the start of the incremental billing period. A rate
		// change within pay-per-request keeps the existing watermark so
		// usage since the last invoice is not dropped.
		if oldCat != plan.CategoryPayPerRequest {
			org.MarkPayPerRequestInvoiced(today)
		}

	default:
		org.AssignPlan(&id, newPlan.MonthlyQuota())
		org.ClearMonthlyCycle()
	}

	return nil
}
