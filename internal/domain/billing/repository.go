package billing

import (
	"context"
	"time"
)

// InvoiceRepository stores emitted invoices.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *Invoice) error

	// ExistsForPeriod reports whether an invoice already covers the exact
	// period for the organization. This is the idempotence guard for
	// scheduler re-runs.
	ExistsForPeriod(ctx context.Context, organizationID uint, periodStart, periodEnd time.Time) (bool, error)

	ListByOrganization(ctx context.Context, organizationID uint) ([]*Invoice, error)
}

// UsageRecorder persists billable usage events.
type UsageRecorder interface {
	Record(ctx context.Context, organizationID uint, recordedAt time.Time, count int64) error
}
