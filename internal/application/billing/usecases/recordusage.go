package usecases

import (
	"context"
	"fmt"
	"time"

	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/organization"
	"tollgate/internal/shared/biztime"
	apperrors "tollgate/internal/shared/errors"
	"tollgate/internal/shared/logger"
)

// UsageCacheInvalidator drops any cached usage count for an organization so
// the next admission check observes the newly recorded events.
type UsageCacheInvalidator interface {
	Invalidate(ctx context.Context, organizationID uint) error
}

// RecordUsageCommand logs billable events for an organization. Count defaults
// to 1; RecordedAt defaults to now.
type RecordUsageCommand struct {
	OrganizationID uint
	Count          int64
	RecordedAt     *time.Time
}

// RecordUsageUseCase persists usage events and reports the resulting quota
// position so callers can record and admit in one round trip.
type RecordUsageUseCase struct {
	orgRepo     organization.Repository
	recorder    billing.UsageRecorder
	invalidator UsageCacheInvalidator
	quota       QuotaChecker
	logger      logger.Interface
	now         func() time.Time
}

func NewRecordUsageUseCase(
	orgRepo organization.Repository,
	recorder billing.UsageRecorder,
	invalidator UsageCacheInvalidator,
	quota QuotaChecker,
	logger logger.Interface,
) *RecordUsageUseCase {
	return &RecordUsageUseCase{
		orgRepo:     orgRepo,
		recorder:    recorder,
		invalidator: invalidator,
		quota:       quota,
		logger:      logger,
		now:         biztime.NowUTC,
	}
}

func (uc *RecordUsageUseCase) Execute(ctx context.Context, cmd RecordUsageCommand) (*QuotaResult, error) {
	if cmd.Count < 0 {
		return nil, apperrors.NewValidationError("usage count must not be negative")
	}
	count := cmd.Count
	if count == 0 {
		count = 1
	}

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

	recordedAt := uc.now()
	if cmd.RecordedAt != nil {
		recordedAt = biztime.ToUTC(*cmd.RecordedAt)
	}

	if err := uc.recorder.Record(ctx, org.ID(), recordedAt, count); err != nil {
		uc.logger.Errorw("failed to record usage",
			"error", err,
			"organization_id", org.ID(),
			"count", count,
		)
		return nil, fmt.Errorf("failed to record usage: %w", err)
	}

	if uc.invalidator != nil {
		if err := uc.invalidator.Invalidate(ctx, org.ID()); err != nil {
			// Stale cached counts self-heal when the cache entry expires.
			uc.logger.Warnw("failed to invalidate cached usage count",
				"error", err,
				"organization_id", org.ID(),
			)
		}
	}

	return uc.quota.Execute(ctx, org.ID())
}
