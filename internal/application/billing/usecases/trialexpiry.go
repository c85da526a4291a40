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

// TrialExpiryUseCase decides whether a trial organization has exhausted its
// free allotment. It is the only writer of the trialPermanentlyExpired latch;
// the latch is set exactly once and never reset here.
type TrialExpiryUseCase struct {
	orgRepo  organization.Repository
	planRepo plan.Repository
	usage    billing.UsageCounter
	identity billing.IdentityProvider
	logger   logger.Interface
	now      func() time.Time
}

func NewTrialExpiryUseCase(
	orgRepo organization.Repository,
	planRepo plan.Repository,
	usage billing.UsageCounter,
	identity billing.IdentityProvider,
	logger logger.Interface,
) *TrialExpiryUseCase {
	return &TrialExpiryUseCase{
		orgRepo:  orgRepo,
		planRepo: planRepo,
		usage:    usage,
		identity: identity,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

// IsExpired reports whether the organization's trial is exhausted.
//
// The quota is the primary bound: while a quota-carrying trial still has
// requests left, the expiration date is ignored. The date only gates trials
// without a quota. A paid plan makes any past trial irrelevant because
// billing flows through the quota enforcer instead.
func (uc *TrialExpiryUseCase) IsExpired(ctx context.Context, org *organization.Organization) (bool, error) {
	// Never activated a trial.
	if org.TrialExpiresAt() == nil {
		return false, nil
	}

	var current *plan.Plan
	if org.PricingPlanID() != nil {
		p, err := uc.planRepo.GetByID(ctx, *org.PricingPlanID())
		if err != nil {
			uc.logger.Errorw("failed to get plan", "error", err, "plan_id", *org.PricingPlanID())
			return false, fmt.Errorf("failed to get plan: %w", err)
		}
		current = p
	}

	if plan.CategoryOf(current).IsPaid() {
		return false, nil
	}

	// The latch is one-way: a consumed trial stays consumed even after the
	// calendar month rolls over and the usage count resets.
	if org.TrialPermanentlyExpired() {
		return true, nil
	}

	if org.MonthlyQuota() != nil {
		windowStart, windowEnd := biztime.MonthWindowUTC(uc.now())
		usage, err := uc.usage.Count(ctx, org.ID(), windowStart, windowEnd)
		if err != nil {
			uc.logger.Errorw("failed to count trial usage",
				"error", err,
				"organization_id", org.ID(),
			)
			return false, fmt.Errorf("failed to count trial usage: %w", err)
		}

		if usage < *org.MonthlyQuota() {
			return false, nil
		}

		uc.latch(ctx, org)
		return true, nil
	}

	return uc.now().After(*org.TrialExpiresAt()), nil
}

// CanOperate reports whether the organization may perform billable work:
// administratively enabled and not trial-expired.
func (uc *TrialExpiryUseCase) CanOperate(ctx context.Context, organizationID uint) (bool, error) {
	org, err := uc.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		uc.logger.Errorw("failed to get organization", "error", err, "organization_id", organizationID)
		return false, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return false, apperrors.NewNotFoundError("organization not found")
	}

	if !org.Enabled() {
		return false, nil
	}

	expired, err := uc.IsExpired(ctx, org)
	if err != nil {
		return false, err
	}
	return !expired, nil
}

// latch persists the one-way flag and suspends member accounts. Both are
// best-effort: a write conflict or identity outage is logged and the expiry
// verdict stands, so the next check retries the latch.
func (uc *TrialExpiryUseCase) latch(ctx context.Context, org *organization.Organization) {
	if !org.LatchTrialExpired() {
		return
	}

	if err := uc.orgRepo.Update(ctx, org); err != nil {
		uc.logger.Warnw("failed to persist trial expiry latch",
			"error", err,
			"organization_id", org.ID(),
		)
		return
	}

	uc.logger.Infow("trial permanently expired",
		"organization_id", org.ID(),
	)

	if err := uc.identity.SuspendAllMembers(ctx, org.ID()); err != nil {
		uc.logger.Errorw("failed to suspend member accounts",
			"error", err,
			"organization_id", org.ID(),
		)
	}
}
