package plan

// Category is the derived classification of a pricing plan. It is computed
// from the price fields and never stored, so it cannot drift out of sync with
// the plan record.
type Category string

const (
	CategoryTrial         Category = "trial"
	CategoryMonthly       Category = "monthly"
	CategoryPayPerRequest Category = "pay_per_request"
	CategoryUnassigned    Category = "unassigned"
)

func (c Category) String() string {
	return string(c)
}

// IsPaid reports whether the category represents a paid plan.
func (c Category) IsPaid() bool {
	return c == CategoryMonthly || c == CategoryPayPerRequest
}

// Category derives the plan's classification. Trial takes precedence over the
// price fields, monthly over pay-per-request.
func (p *Plan) Category() Category {
	switch {
	case p.trialPeriodDays != nil && *p.trialPeriodDays > 0:
		return CategoryTrial
	case p.pricePerMonth != nil && *p.pricePerMonth > 0:
		return CategoryMonthly
	case p.pricePerRequest != nil && *p.pricePerRequest > 0:
		return CategoryPayPerRequest
	default:
		return CategoryUnassigned
	}
}

// CategoryOf returns the category of p, treating a nil plan as unassigned.
func CategoryOf(p *Plan) Category {
	if p == nil {
		return CategoryUnassigned
	}
	return p.Category()
}
