package models

import (
	"time"

	"tollgate/internal/shared/constants"
)

// UsageEventModel is the persistence model for billable usage events. Events
// are append-only; counting windows filter on recorded_at.
type UsageEventModel struct {
	ID             uint      `gorm:"primarykey"`
	OrganizationID uint      `gorm:"not null;index:idx_usage_org_recorded,priority:1"`
	RecordedAt     time.Time `gorm:"not null;index:idx_usage_org_recorded,priority:2"`
	Count          int64     `gorm:"not null;default:1"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (UsageEventModel) TableName() string {
	return constants.TableUsageEvents
}
