// Package constants defines shared constants used across the application.
package constants

// Database table names.
const (
	TableOrganizations  = "organizations"
	TablePricingPlans   = "pricing_plans"
	TableInvoices       = "invoices"
	TableUsageEvents    = "usage_events"
	TableMemberAccounts = "member_accounts"
)

// DefaultCurrency is the currency assigned when a plan does not specify one.
const DefaultCurrency = "USD"

// Pagination defaults.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)
