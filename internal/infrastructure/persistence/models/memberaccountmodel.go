package models

import (
	"time"

	"tollgate/internal/shared/constants"
)

// MemberAccountModel is the persistence model for the identity backend's
// member accounts. The billing engine only flips the suspension flag.
type MemberAccountModel struct {
	ID             uint   `gorm:"primarykey"`
	OrganizationID uint   `gorm:"not null;index"`
	Email          string `gorm:"not null;size:255;uniqueIndex"`
	Suspended      bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName specifies the table name for GORM
func (MemberAccountModel) TableName() string {
	return constants.TableMemberAccounts
}
