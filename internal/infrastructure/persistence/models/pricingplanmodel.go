package models

import (
	"time"

	"gorm.io/gorm"

	"tollgate/internal/domain/plan"
	"tollgate/internal/shared/constants"
)

// PricingPlanModel is the persistence model for pricing catalog entries. The
// plan category is never stored; it is derived from the price fields.
type PricingPlanModel struct {
	ID              uint    `gorm:"primarykey"`
	Name            string  `gorm:"not null;size:100"`
	Slug            string  `gorm:"uniqueIndex;not null;size:50"`
	PricePerMonth   *uint64 `gorm:""`
	PricePerRequest *uint64 `gorm:""`
	MonthlyQuota    *int64  `gorm:""`
	TrialPeriodDays *int    `gorm:""`
	MarketVersion   int     `gorm:"not null;default:1;index"`
	Currency        string  `gorm:"not null;size:3"`
	// No default tag on the flag: GORM drops zero-valued fields with
	// defaults from INSERTs, which would silently store false as true.
	IsActive  bool `gorm:"not null;index"`
	SortOrder int  `gorm:"default:0"`
	Version   int  `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (PricingPlanModel) TableName() string {
	return constants.TablePricingPlans
}

// BeforeCreate hook for GORM
func (m *PricingPlanModel) BeforeCreate(tx *gorm.DB) error {
	if m.Currency == "" {
		m.Currency = constants.DefaultCurrency
	}
	return nil
}

func (m *PricingPlanModel) FromEntity(p *plan.Plan) {
	m.ID = p.ID()
	m.Name = p.Name()
	m.Slug = p.Slug()
	m.PricePerMonth = p.PricePerMonth()
	m.PricePerRequest = p.PricePerRequest()
	m.MonthlyQuota = p.MonthlyQuota()
	m.TrialPeriodDays = p.TrialPeriodDays()
	m.MarketVersion = p.MarketVersion()
	m.Currency = p.Currency()
	m.IsActive = p.IsActive()
	m.SortOrder = p.SortOrder()
	m.Version = p.Version()
	m.CreatedAt = p.CreatedAt()
	m.UpdatedAt = p.UpdatedAt()
}

func (m *PricingPlanModel) ToEntity() (*plan.Plan, error) {
	return plan.ReconstructPlan(
		m.ID,
		m.Name,
		m.Slug,
		m.PricePerMonth,
		m.PricePerRequest,
		m.MonthlyQuota,
		m.TrialPeriodDays,
		m.MarketVersion,
		m.Currency,
		m.IsActive,
		m.SortOrder,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
}
