package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tollgate/internal/infrastructure/persistence/models"
	"tollgate/internal/shared/db"
	"tollgate/internal/shared/logger"
)

// UsageRepositoryImpl persists usage events and counts them over inclusive
// windows. It backs both the recorder and the counter ports; the counter is
// usually wrapped by the Redis cache for request-time reads.
type UsageRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

func NewUsageRepository(db *gorm.DB, logger logger.Interface) *UsageRepositoryImpl {
	return &UsageRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

func (r *UsageRepositoryImpl) conn(ctx context.Context) *gorm.DB {
	return db.GetTxFromContext(ctx, r.db)
}

func (r *UsageRepositoryImpl) Record(ctx context.Context, organizationID uint, recordedAt time.Time, count int64) error {
	model := models.UsageEventModel{
		OrganizationID: organizationID,
		RecordedAt:     recordedAt,
		Count:          count,
	}

	if err := r.conn(ctx).WithContext(ctx).Create(&model).Error; err != nil {
		r.logger.Errorw("failed to record usage event", "error", err, "organization_id", organizationID)
		return fmt.Errorf("failed to record usage event: %w", err)
	}

	return nil
}

func (r *UsageRepositoryImpl) Count(ctx context.Context, organizationID uint, windowStart, windowEnd time.Time) (int64, error) {
	var total *int64
	err := r.conn(ctx).WithContext(ctx).Model(&models.UsageEventModel{}).
		Select("SUM(count)").
		Where("organization_id = ? AND recorded_at >= ? AND recorded_at <= ?", organizationID, windowStart, windowEnd).
		Scan(&total).Error
	if err != nil {
		r.logger.Errorw("failed to count usage events",
			"error", err,
			"organization_id", organizationID,
			"window_start", windowStart,
			"window_end", windowEnd,
		)
		return 0, fmt.Errorf("failed to count usage events: %w", err)
	}

	if total == nil {
		return 0, nil
	}
	return *total, nil
}
