// Package usecases provides application-level use cases for the plan
// lifecycle and quota enforcement engine.
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

// QuotaResult is the outcome of a quota check. OK=false is not an error: the
// caller bills the request at FallbackPricePerRequest when present, or
// rejects it upstream when the catalog has no pay-per-request fallback.
type QuotaResult struct {
	OrganizationID uint
	OK             bool
	Usage          int64
	Quota          *int64 // nil = unlimited
	PeriodStart    time.Time
	PeriodEnd      time.Time

	// FallbackPricePerRequest is the unit price to bill overage requests at,
	// from the active pay-per-request plan of the organization's market
	// version. Only set when OK is false.
	FallbackPricePerRequest *uint64
	FallbackPlanID          *uint
	Currency                string
}

// QuotaChecker is the request-admission contract exposed to callers and to
// the reconciliation passes that re-evaluate overage.
type QuotaChecker interface {
	Execute(ctx context.Context, organizationID uint) (*QuotaResult, error)
}

// CheckQuotaUseCase decides OK / overage / blocked for an organization. It is
// side-effect free and safe to call repeatedly.
type CheckQuotaUseCase struct {
	orgRepo  organization.Repository
	planRepo plan.Repository
	usage    billing.UsageCounter
	logger   logger.Interface
	now      func() time.Time
}

func NewCheckQuotaUseCase(
	orgRepo organization.Repository,
	planRepo plan.Repository,
	usage billing.UsageCounter,
	logger logger.Interface,
) *CheckQuotaUseCase {
	return &CheckQuotaUseCase{
		orgRepo:  orgRepo,
		planRepo: planRepo,
		usage:    usage,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

func (uc *CheckQuotaUseCase) Execute(ctx context.Context, organizationID uint) (*QuotaResult, error) {
	org, err := uc.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		uc.logger.Errorw("failed to get organization", "error", err, "organization_id", organizationID)
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, apperrors.NewNotFoundError("organization not found")
	}

	return uc.check(ctx, org)
}

// ExecuteFor runs the check against an already loaded snapshot.
func (uc *CheckQuotaUseCase) ExecuteFor(ctx context.Context, org *organization.Organization) (*QuotaResult, error) {
	return uc.check(ctx, org)
}

func (uc *CheckQuotaUseCase) check(ctx context.Context, org *organization.Organization) (*QuotaResult, error) {
	var current *plan.Plan
	if org.PricingPlanID() != nil {
		p, err := uc.planRepo.GetByID(ctx, *org.PricingPlanID())
		if err != nil {
			uc.logger.Errorw("failed to get plan", "error", err, "plan_id", *org.PricingPlanID())
			return nil, fmt.Errorf("failed to get plan: %w", err)
		}
		current = p
	}

	periodStart, periodEnd := uc.countingWindow(org, current)

	result := &QuotaResult{
		OrganizationID: org.ID(),
		OK:             true,
		Quota:          org.MonthlyQuota(),
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
	}

	// Pay-per-request organizations are never quota-limited; every request
	// is billable at the plan rate instead.
	if plan.CategoryOf(current) == plan.CategoryPayPerRequest {
		result.Quota = nil
		return result, nil
	}

	if org.MonthlyQuota() == nil {
		return result, nil
	}

	usage, err := uc.usage.Count(ctx, org.ID(), periodStart, periodEnd)
	if err != nil {
		uc.logger.Errorw("failed to count usage",
			"error", err,
			"organization_id", org.ID(),
			"period_start", periodStart,
			"period_end", periodEnd,
		)
		return nil, fmt.Errorf("failed to count usage: %w", err)
	}

	result.Usage = usage
	result.OK = usage < *org.MonthlyQuota()

	if !result.OK {
		fallback, err := uc.planRepo.FindActivePayPerRequestPlan(ctx, org.MarketVersion())
		if err != nil {
			uc.logger.Errorw("failed to look up pay-per-request fallback plan",
				"error", err,
				"market_version", org.MarketVersion(),
			)
			return nil, fmt.Errorf("failed to look up fallback plan: %w", err)
		}
		if fallback != nil {
			id := fallback.ID()
			result.FallbackPlanID = &id
			result.FallbackPricePerRequest = fallback.PricePerRequest()
			result.Currency = fallback.Currency()
		}
	}

	return result, nil
}

// countingWindow picks the usage window: the monthly cycle when one is
// active (plans can start mid-month), the calendar month containing now
// otherwise.
func (uc *CheckQuotaUseCase) countingWindow(org *organization.Organization, current *plan.Plan) (time.Time, time.Time) {
	if plan.CategoryOf(current) == plan.CategoryMonthly && org.HasMonthlyCycle() {
		return *org.MonthlyPlanStartDate(), biztime.EndOfDayUTC(*org.MonthlyPlanEndDate())
	}
	return biztime.MonthWindowUTC(uc.now())
}
