// Package invoicing emits closure and cycle invoices with an existence guard
// per (organization, period) so scheduler re-runs never double-bill.
package invoicing

import (
	"context"
	"fmt"
	"time"

	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/plan"
	"tollgate/internal/shared/constants"
	"tollgate/internal/shared/logger"
)

type Generator struct {
	invoices billing.InvoiceRepository
	usage    billing.UsageCounter
	logger   logger.Interface
}

func NewGenerator(invoices billing.InvoiceRepository, usage billing.UsageCounter, logger logger.Interface) *Generator {
	return &Generator{
		invoices: invoices,
		usage:    usage,
		logger:   logger,
	}
}

// GenerateClosureInvoice bills the final period of a plan that is ending. A
// monthly plan closes at its fixed price; a pay-per-request plan closes at
// usage times the unit rate, and a period with zero usage produces no
// invoice. Returns (nil, nil) when the period is already invoiced.
func (g *Generator) GenerateClosureInvoice(ctx context.Context, organizationID uint, p *plan.Plan, periodStart, periodEnd time.Time) (*billing.Invoice, error) {
	switch plan.CategoryOf(p) {
	case plan.CategoryMonthly, plan.CategoryPayPerRequest:
	default:
		// Trials and unassigned periods are free.
		return nil, nil
	}

	exists, err := g.invoices.ExistsForPeriod(ctx, organizationID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to check invoice existence: %w", err)
	}
	if exists {
		g.logger.Debugw("period already invoiced, skipping",
			"organization_id", organizationID,
			"period_start", periodStart,
			"period_end", periodEnd,
		)
		return nil, nil
	}

	usage, err := g.usage.Count(ctx, organizationID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage for invoice: %w", err)
	}

	var amount uint64
	if p.Category() == plan.CategoryMonthly {
		amount = *p.PricePerMonth()
	} else {
		if usage == 0 {
			return nil, nil
		}
		amount = uint64(usage) * *p.PricePerRequest()
	}

	return g.create(ctx, organizationID, p, billing.InvoiceKindClosure, periodStart, periodEnd, amount, usage)
}

// GenerateCycleInvoice bills a monthly cycle at the plan's fixed price.
// Returns (nil, nil) when the period is already invoiced.
func (g *Generator) GenerateCycleInvoice(ctx context.Context, organizationID uint, p *plan.Plan, periodStart, periodEnd time.Time) (*billing.Invoice, error) {
	if plan.CategoryOf(p) != plan.CategoryMonthly {
		return nil, fmt.Errorf("cycle invoices require a monthly plan")
	}

	exists, err := g.invoices.ExistsForPeriod(ctx, organizationID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to check invoice existence: %w", err)
	}
	if exists {
		g.logger.Debugw("period already invoiced, skipping",
			"organization_id", organizationID,
			"period_start", periodStart,
			"period_end", periodEnd,
		)
		return nil, nil
	}

	usage, err := g.usage.Count(ctx, organizationID, periodStart, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to count usage for invoice: %w", err)
	}

	return g.create(ctx, organizationID, p, billing.InvoiceKindCycle, periodStart, periodEnd, *p.PricePerMonth(), usage)
}

func (g *Generator) create(ctx context.Context, organizationID uint, p *plan.Plan, kind billing.InvoiceKind,
	periodStart, periodEnd time.Time, amount uint64, usage int64) (*billing.Invoice, error) {

	currency := p.Currency()
	if currency == "" {
		currency = constants.DefaultCurrency
	}

	invoice, err := billing.NewInvoice(organizationID, p.ID(), kind, periodStart, periodEnd, amount, currency, usage)
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice: %w", err)
	}

	if err := g.invoices.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to store invoice: %w", err)
	}

	g.logger.Infow("invoice generated",
		"invoice_id", invoice.ID(),
		"organization_id", organizationID,
		"kind", kind,
		"amount", amount,
		"currency", currency,
		"request_count", usage,
	)
	return invoice, nil
}
