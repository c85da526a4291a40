package models

import (
	"time"

	"tollgate/internal/domain/billing"
	"tollgate/internal/shared/constants"
)

// InvoiceModel is the persistence model for emitted invoices. The composite
// unique index on (organization_id, period_start, period_end) is the
// idempotence guard that keeps scheduler re-runs from double-billing.
type InvoiceModel struct {
	ID             uint      `gorm:"primarykey"`
	OrganizationID uint      `gorm:"not null;uniqueIndex:idx_invoices_org_period,priority:1"`
	PlanID         uint      `gorm:"not null"`
	Kind           string    `gorm:"not null;size:20"`
	PeriodStart    time.Time `gorm:"not null;uniqueIndex:idx_invoices_org_period,priority:2"`
	PeriodEnd      time.Time `gorm:"not null;uniqueIndex:idx_invoices_org_period,priority:3"`
	Amount         uint64    `gorm:"not null"`
	Currency       string    `gorm:"not null;size:3"`
	RequestCount   int64     `gorm:"not null;default:0"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (InvoiceModel) TableName() string {
	return constants.TableInvoices
}

func (m *InvoiceModel) FromEntity(inv *billing.Invoice) {
	m.ID = inv.ID()
	m.OrganizationID = inv.OrganizationID()
	m.PlanID = inv.PlanID()
	m.Kind = string(inv.Kind())
	m.PeriodStart = inv.PeriodStart()
	m.PeriodEnd = inv.PeriodEnd()
	m.Amount = inv.Amount()
	m.Currency = inv.Currency()
	m.RequestCount = inv.RequestCount()
	m.CreatedAt = inv.CreatedAt()
}

func (m *InvoiceModel) ToEntity() (*billing.Invoice, error) {
	return billing.ReconstructInvoice(
		m.ID,
		m.OrganizationID,
		m.PlanID,
		billing.InvoiceKind(m.Kind),
		m.PeriodStart,
		m.PeriodEnd,
		m.Amount,
		m.Currency,
		m.RequestCount,
		m.CreatedAt,
	)
}
