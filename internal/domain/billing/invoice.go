package billing

import (
	"fmt"
	"time"
)

// InvoiceKind distinguishes the final bill for an ending period from the
// fixed-price renewal bill for a fresh cycle.
type InvoiceKind string

const (
	InvoiceKindClosure InvoiceKind = "closure"
	InvoiceKindCycle   InvoiceKind = "cycle"
)

// Invoice is an emitted bill for an organization over an inclusive period.
// The (organizationID, periodStart, periodEnd) triple is unique; repeated
// generation attempts for the same period are no-ops.
type Invoice struct {
	id             uint
	organizationID uint
	planID         uint
	kind           InvoiceKind
	periodStart    time.Time
	periodEnd      time.Time
	amount         uint64
	currency       string
	requestCount   int64
	createdAt      time.Time
}

func NewInvoice(organizationID, planID uint, kind InvoiceKind,
	periodStart, periodEnd time.Time, amount uint64, currency string, requestCount int64) (*Invoice, error) {

	if organizationID == 0 {
		return nil, fmt.Errorf("organization ID is required")
	}
	if kind != InvoiceKindClosure && kind != InvoiceKindCycle {
		return nil, fmt.Errorf("invalid invoice kind: %s", kind)
	}
	if periodEnd.Before(periodStart) {
		return nil, fmt.Errorf("period end must not be before period start")
	}
	if requestCount < 0 {
		return nil, fmt.Errorf("request count cannot be negative")
	}

	return &Invoice{
		organizationID: organizationID,
		planID:         planID,
		kind:           kind,
		periodStart:    periodStart,
		periodEnd:      periodEnd,
		amount:         amount,
		currency:       currency,
		requestCount:   requestCount,
		createdAt:      time.Now().UTC(),
	}, nil
}

// ReconstructInvoice rebuilds an invoice from persistence.
func ReconstructInvoice(id, organizationID, planID uint, kind InvoiceKind,
	periodStart, periodEnd time.Time, amount uint64, currency string,
	requestCount int64, createdAt time.Time) (*Invoice, error) {

	if id == 0 {
		return nil, fmt.Errorf("invoice ID cannot be zero")
	}

	return &Invoice{
		id:             id,
		organizationID: organizationID,
		planID:         planID,
		kind:           kind,
		periodStart:    periodStart,
		periodEnd:      periodEnd,
		amount:         amount,
		currency:       currency,
		requestCount:   requestCount,
		createdAt:      createdAt,
	}, nil
}

func (i *Invoice) ID() uint {
	return i.id
}

func (i *Invoice) SetID(id uint) error {
	if i.id != 0 {
		return fmt.Errorf("invoice ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("invoice ID cannot be zero")
	}
	i.id = id
	return nil
}

func (i *Invoice) OrganizationID() uint {
	return i.organizationID
}

func (i *Invoice) PlanID() uint {
	return i.planID
}

func (i *Invoice) Kind() InvoiceKind {
	return i.kind
}

func (i *Invoice) PeriodStart() time.Time {
	return i.periodStart
}

func (i *Invoice) PeriodEnd() time.Time {
	return i.periodEnd
}

func (i *Invoice) Amount() uint64 {
	return i.amount
}

func (i *Invoice) Currency() string {
	return i.currency
}

func (i *Invoice) RequestCount() int64 {
	return i.requestCount
}

func (i *Invoice) CreatedAt() time.Time {
	return i.createdAt
}
