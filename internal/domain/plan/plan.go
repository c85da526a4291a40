package plan

import (
	"fmt"
	"time"
)

var validCurrencies = map[string]bool{
	"CNY": true,
	"USD": true,
	"EUR": true,
	"GBP": true,
	"JPY": true,
}

// Plan represents a pricing plan in the catalog. Prices and quota are
// nullable: a nil PricePerMonth means the plan is not monthly-priced, a nil
// MonthlyQuota means unlimited usage.
type Plan struct {
	id              uint
	name            string
	slug            string
	pricePerMonth   *uint64
	pricePerRequest *uint64
	monthlyQuota    *int64
	trialPeriodDays *int
	marketVersion   int
	currency        string
	active          bool
	sortOrder       int
	version         int
	createdAt       time.Time
	updatedAt       time.Time
}

func NewPlan(name, slug string, pricePerMonth, pricePerRequest *uint64,
	monthlyQuota *int64, trialPeriodDays *int, marketVersion int, currency string) (*Plan, error) {

	if name == "" {
		return nil, fmt.Errorf("plan name is required")
	}
	if slug == "" {
		return nil, fmt.Errorf("plan slug is required")
	}
	if len(name) > 100 {
		return nil, fmt.Errorf("plan name too long (max 100 characters)")
	}
	if !validCurrencies[currency] {
		return nil, fmt.Errorf("invalid currency code: %s", currency)
	}
	if monthlyQuota != nil && *monthlyQuota < 0 {
		return nil, fmt.Errorf("monthly quota cannot be negative")
	}
	if trialPeriodDays != nil && *trialPeriodDays < 0 {
		return nil, fmt.Errorf("trial period days cannot be negative")
	}
	if marketVersion < 1 {
		return nil, fmt.Errorf("market version must be positive")
	}

	now := time.Now().UTC()
	return &Plan{
		name:            name,
		slug:            slug,
		pricePerMonth:   pricePerMonth,
		pricePerRequest: pricePerRequest,
		monthlyQuota:    monthlyQuota,
		trialPeriodDays: trialPeriodDays,
		marketVersion:   marketVersion,
		currency:        currency,
		active:          true,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructPlan rebuilds a plan from persistence.
func ReconstructPlan(id uint, name, slug string, pricePerMonth, pricePerRequest *uint64,
	monthlyQuota *int64, trialPeriodDays *int, marketVersion int, currency string,
	active bool, sortOrder, version int, createdAt, updatedAt time.Time) (*Plan, error) {

	if id == 0 {
		return nil, fmt.Errorf("plan ID cannot be zero")
	}

	return &Plan{
		id:              id,
		name:            name,
		slug:            slug,
		pricePerMonth:   pricePerMonth,
		pricePerRequest: pricePerRequest,
		monthlyQuota:    monthlyQuota,
		trialPeriodDays: trialPeriodDays,
		marketVersion:   marketVersion,
		currency:        currency,
		active:          active,
		sortOrder:       sortOrder,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}, nil
}

func (p *Plan) ID() uint {
	return p.id
}

func (p *Plan) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("plan ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("plan ID cannot be zero")
	}
	p.id = id
	return nil
}

func (p *Plan) Name() string {
	return p.name
}

func (p *Plan) Slug() string {
	return p.slug
}

func (p *Plan) PricePerMonth() *uint64 {
	return p.pricePerMonth
}

func (p *Plan) PricePerRequest() *uint64 {
	return p.pricePerRequest
}

func (p *Plan) MonthlyQuota() *int64 {
	return p.monthlyQuota
}

func (p *Plan) TrialPeriodDays() *int {
	return p.trialPeriodDays
}

func (p *Plan) MarketVersion() int {
	return p.marketVersion
}

func (p *Plan) Currency() string {
	return p.currency
}

func (p *Plan) IsActive() bool {
	return p.active
}

func (p *Plan) SortOrder() int {
	return p.sortOrder
}

// Version returns the aggregate version for optimistic locking
func (p *Plan) Version() int {
	return p.version
}

func (p *Plan) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Plan) UpdatedAt() time.Time {
	return p.updatedAt
}

func (p *Plan) Activate() {
	if p.active {
		return
	}
	p.active = true
	p.touch()
}

func (p *Plan) Deactivate() {
	if !p.active {
		return
	}
	p.active = false
	p.touch()
}

func (p *Plan) SetSortOrder(order int) {
	p.sortOrder = order
	p.touch()
}

func (p *Plan) touch() {
	p.updatedAt = time.Now().UTC()
	p.version++
}
