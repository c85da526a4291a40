package dto

import (
	"time"

	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
)

// ChangePlanRequest requests a plan change for an organization. A null
// plan_id removes the active plan.
type ChangePlanRequest struct {
	PlanID *uint `json:"plan_id"`
}

// RecordUsageRequest logs billable events for an organization.
type RecordUsageRequest struct {
	Count      int64      `json:"count"`                 // Defaults to 1
	RecordedAt *time.Time `json:"recorded_at,omitempty"` // Defaults to now
}

// QuotaResponse is the admission decision for an organization.
type QuotaResponse struct {
	OrganizationID uint   `json:"organization_id"`
	OK             bool   `json:"ok"`
	Usage          int64  `json:"usage"`
	Quota          *int64 `json:"quota"` // null = unlimited
	PeriodStart    string `json:"period_start"`
	PeriodEnd      string `json:"period_end"`

	FallbackPricePerRequest *uint64 `json:"fallback_price_per_request,omitempty"`
	FallbackPlanID          *uint   `json:"fallback_plan_id,omitempty"`
	Currency                string  `json:"currency,omitempty"`
}

// OrganizationSnapshotResponse is the plan snapshot exposed to callers.
type OrganizationSnapshotResponse struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Enabled       bool   `json:"enabled"`
	PricingPlanID *uint  `json:"pricing_plan_id"`
	MonthlyQuota  *int64 `json:"monthly_quota"`
	MarketVersion int    `json:"market_version"`

	TrialExpiresAt          *time.Time `json:"trial_expires_at,omitempty"`
	TrialPermanentlyExpired bool       `json:"trial_permanently_expired"`

	MonthlyPlanStartDate *time.Time `json:"monthly_plan_start_date,omitempty"`
	MonthlyPlanEndDate   *time.Time `json:"monthly_plan_end_date,omitempty"`

	PendingMonthlyPlanID           *uint      `json:"pending_monthly_plan_id,omitempty"`
	PendingMonthlyPlanChangeDate   *time.Time `json:"pending_monthly_plan_change_date,omitempty"`
	PendingPayPerRequestPlanID     *uint      `json:"pending_pay_per_request_plan_id,omitempty"`
	PendingPayPerRequestChangeDate *time.Time `json:"pending_pay_per_request_change_date,omitempty"`

	LastPayPerRequestInvoiceDate *time.Time `json:"last_pay_per_request_invoice_date,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// PlanResponse is a pricing catalog entry.
type PlanResponse struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Slug            string  `json:"slug"`
	Category        string  `json:"category"`
	PricePerMonth   *uint64 `json:"price_per_month"`
	PricePerRequest *uint64 `json:"price_per_request"`
	MonthlyQuota    *int64  `json:"monthly_quota"`
	TrialPeriodDays *int    `json:"trial_period_days"`
	MarketVersion   int     `json:"market_version"`
	Currency        string  `json:"currency"`
	IsActive        bool    `json:"is_active"`
	SortOrder       int     `json:"sort_order"`
}

// InvoiceResponse is an emitted invoice.
type InvoiceResponse struct {
	ID             uint      `json:"id"`
	OrganizationID uint      `json:"organization_id"`
	PlanID         uint      `json:"plan_id"`
	Kind           string    `json:"kind"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	AmountMinor    uint64    `json:"amount_minor"`
	Currency       string    `json:"currency"`
	UsageCount     int64     `json:"usage_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// CanOperateResponse reports whether an organization may perform billable work.
type CanOperateResponse struct {
	OrganizationID uint `json:"organization_id"`
	CanOperate     bool `json:"can_operate"`
}

func NewQuotaResponse(r *usecases.QuotaResult) *QuotaResponse {
	return &QuotaResponse{
		OrganizationID:          r.OrganizationID,
		OK:                      r.OK,
		Usage:                   r.Usage,
		Quota:                   r.Quota,
		PeriodStart:             r.PeriodStart.Format(time.RFC3339Nano),
		PeriodEnd:               r.PeriodEnd.Format(time.RFC3339Nano),
		FallbackPricePerRequest: r.FallbackPricePerRequest,
		FallbackPlanID:          r.FallbackPlanID,
		Currency:                r.Currency,
	}
}

func NewOrganizationSnapshotResponse(org *organization.Organization) *OrganizationSnapshotResponse {
	return &OrganizationSnapshotResponse{
		ID:                             org.ID(),
		Name:                           org.Name(),
		Enabled:                        org.Enabled(),
		PricingPlanID:                  org.PricingPlanID(),
		MonthlyQuota:                   org.MonthlyQuota(),
		MarketVersion:                  org.MarketVersion(),
		TrialExpiresAt:                 org.TrialExpiresAt(),
		TrialPermanentlyExpired:        org.TrialPermanentlyExpired(),
		MonthlyPlanStartDate:           org.MonthlyPlanStartDate(),
		MonthlyPlanEndDate:             org.MonthlyPlanEndDate(),
		PendingMonthlyPlanID:           org.PendingMonthlyPlanID(),
		PendingMonthlyPlanChangeDate:   org.PendingMonthlyPlanChangeDate(),
		PendingPayPerRequestPlanID:     org.PendingPayPerRequestPlanID(),
		PendingPayPerRequestChangeDate: org.PendingPayPerRequestChangeDate(),
		LastPayPerRequestInvoiceDate:   org.LastPayPerRequestInvoiceDate(),
		UpdatedAt:                      org.UpdatedAt(),
	}
}

func NewPlanResponse(p *plan.Plan) *PlanResponse {
	return &PlanResponse{
		ID:              p.ID(),
		Name:            p.Name(),
		Slug:            p.Slug(),
		Category:        p.Category().String(),
		PricePerMonth:   p.PricePerMonth(),
		PricePerRequest: p.PricePerRequest(),
		MonthlyQuota:    p.MonthlyQuota(),
		TrialPeriodDays: p.TrialPeriodDays(),
		MarketVersion:   p.MarketVersion(),
		Currency:        p.Currency(),
		IsActive:        p.IsActive(),
		SortOrder:       p.SortOrder(),
	}
}

func NewPlanResponseList(plans []*plan.Plan) []*PlanResponse {
	out := make([]*PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, NewPlanResponse(p))
	}
	return out
}

func NewInvoiceResponse(inv *billing.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		ID:             inv.ID(),
		OrganizationID: inv.OrganizationID(),
		PlanID:         inv.PlanID(),
		Kind:           string(inv.Kind()),
		PeriodStart:    inv.PeriodStart(),
		PeriodEnd:      inv.PeriodEnd(),
		AmountMinor:    inv.Amount(),
		Currency:       inv.Currency(),
		UsageCount:     inv.RequestCount(),
		CreatedAt:      inv.CreatedAt(),
	}
}

func NewInvoiceResponseList(invoices []*billing.Invoice) []*InvoiceResponse {
	out := make([]*InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, NewInvoiceResponse(inv))
	}
	return out
}
