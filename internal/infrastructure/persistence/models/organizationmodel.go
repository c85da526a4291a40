package models

import (
	"time"

	"gorm.io/gorm"

	"tollgate/internal/domain/organization"
	"tollgate/internal/shared/constants"
)

// OrganizationModel is the persistence model for the organization plan
// snapshot. This is the anti-corruption layer between domain and database.
type OrganizationModel struct {
	ID           uint   `gorm:"primarykey"`
	Name         string `gorm:"not null;size:200"`
	BillingEmail string `gorm:"size:255"`
	// No default tag: a default would make GORM omit false on INSERT and
	// store a disabled organization as enabled.
	Enabled bool `gorm:"not null"`

	PricingPlanID *uint  `gorm:"index"`
	MonthlyQuota  *int64 `gorm:""`
	MarketVersion int    `gorm:"not null;default:1"`

	TrialExpiresAt          *time.Time `gorm:""`
	TrialPermanentlyExpired bool       `gorm:"not null;default:false"`

	MonthlyPlanStartDate *time.Time `gorm:""`
	MonthlyPlanEndDate   *time.Time `gorm:"index"`

	PendingMonthlyPlanID         *uint      `gorm:""`
	PendingMonthlyPlanChangeDate *time.Time `gorm:"index"`

	PendingPayPerRequestPlanID     *uint      `gorm:"index"`
	PendingPayPerRequestChangeDate *time.Time `gorm:""`

	LastPayPerRequestInvoiceDate *time.Time `gorm:""`

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (OrganizationModel) TableName() string {
	return constants.TableOrganizations
}

// FromEntity converts a domain organization to the persistence model.
func (m *OrganizationModel) FromEntity(org *organization.Organization) {
	m.ID = org.ID()
	m.Name = org.Name()
	m.BillingEmail = org.BillingEmail()
	m.Enabled = org.Enabled()
	m.PricingPlanID = org.PricingPlanID()
	m.MonthlyQuota = org.MonthlyQuota()
	m.MarketVersion = org.MarketVersion()
	m.TrialExpiresAt = org.TrialExpiresAt()
	m.TrialPermanentlyExpired = org.TrialPermanentlyExpired()
	m.MonthlyPlanStartDate = org.MonthlyPlanStartDate()
	m.MonthlyPlanEndDate = org.MonthlyPlanEndDate()
	m.PendingMonthlyPlanID = org.PendingMonthlyPlanID()
	m.PendingMonthlyPlanChangeDate = org.PendingMonthlyPlanChangeDate()
	m.PendingPayPerRequestPlanID = org.PendingPayPerRequestPlanID()
	m.PendingPayPerRequestChangeDate = org.PendingPayPerRequestChangeDate()
	m.LastPayPerRequestInvoiceDate = org.LastPayPerRequestInvoiceDate()
	m.Version = org.Version()
	m.CreatedAt = org.CreatedAt()
	m.UpdatedAt = org.UpdatedAt()
}

// ToEntity converts the persistence model to a domain organization.
func (m *OrganizationModel) ToEntity() (*organization.Organization, error) {
	return organization.ReconstructOrganization(
		m.ID,
		m.Name,
		m.BillingEmail,
		m.Enabled,
		m.PricingPlanID,
		m.MonthlyQuota,
		m.MarketVersion,
		m.TrialExpiresAt,
		m.TrialPermanentlyExpired,
		m.MonthlyPlanStartDate,
		m.MonthlyPlanEndDate,
		m.PendingMonthlyPlanID,
		m.PendingMonthlyPlanChangeDate,
		m.PendingPayPerRequestPlanID,
		m.PendingPayPerRequestChangeDate,
		m.LastPayPerRequestInvoiceDate,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
