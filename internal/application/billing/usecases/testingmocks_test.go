package usecases

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"tollgate/internal/domain/billing"
	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
	"tollgate/internal/shared/logger"

	"github.com/stretchr/testify/mock"
)

type mockOrganizationRepository struct {
	mock.Mock
}

func (m *mockOrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *mockOrganizationRepository) GetByID(ctx context.Context, id uint) (*organization.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*organization.Organization), args.Error(1)
}

func (m *mockOrganizationRepository) Update(ctx context.Context, org *organization.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *mockOrganizationRepository) FindWithDueMonthlyChanges(ctx context.Context, asOf time.Time) ([]*organization.Organization, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*organization.Organization), args.Error(1)
}

func (m *mockOrganizationRepository) FindWithExpiredCycles(ctx context.Context, asOf time.Time) ([]*organization.Organization, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*organization.Organization), args.Error(1)
}

func (m *mockOrganizationRepository) FindWithPendingPayPerRequest(ctx context.Context) ([]*organization.Organization, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*organization.Organization), args.Error(1)
}

type mockPlanRepository struct {
	mock.Mock
}

func (m *mockPlanRepository) Create(ctx context.Context, p *plan.Plan) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPlanRepository) GetByID(ctx context.Context, id uint) (*plan.Plan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

func (m *mockPlanRepository) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

func (m *mockPlanRepository) Update(ctx context.Context, p *plan.Plan) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPlanRepository) ListActive(ctx context.Context, marketVersion int) ([]*plan.Plan, error) {
	args := m.Called(ctx, marketVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*plan.Plan), args.Error(1)
}

func (m *mockPlanRepository) FindActivePayPerRequestPlan(ctx context.Context, marketVersion int) (*plan.Plan, error) {
	args := m.Called(ctx, marketVersion)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*plan.Plan), args.Error(1)
}

type mockUsageCounter struct {
	mock.Mock
}

func (m *mockUsageCounter) Count(ctx context.Context, organizationID uint, windowStart, windowEnd time.Time) (int64, error) {
	args := m.Called(ctx, organizationID, windowStart, windowEnd)
	return args.Get(0).(int64), args.Error(1)
}

type mockInvoiceGenerator struct {
	mock.Mock
}

func (m *mockInvoiceGenerator) GenerateClosureInvoice(ctx context.Context, organizationID uint, p *plan.Plan, periodStart, periodEnd time.Time) (*billing.Invoice, error) {
	args := m.Called(ctx, organizationID, p, periodStart, periodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceGenerator) GenerateCycleInvoice(ctx context.Context, organizationID uint, p *plan.Plan, periodStart, periodEnd time.Time) (*billing.Invoice, error) {
	args := m.Called(ctx, organizationID, p, periodStart, periodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

type mockIdentityProvider struct {
	mock.Mock
}

func (m *mockIdentityProvider) SuspendAllMembers(ctx context.Context, organizationID uint) error {
	args := m.Called(ctx, organizationID)
	return args.Error(0)
}

func (m *mockIdentityProvider) ReactivateAllMembers(ctx context.Context, organizationID uint) error {
	args := m.Called(ctx, organizationID)
	return args.Error(0)
}

type mockNotificationSink struct {
	mock.Mock
}

func (m *mockNotificationSink) PlanChanged(ctx context.Context, org *organization.Organization, oldPlan, newPlan *plan.Plan) error {
	args := m.Called(ctx, org, oldPlan, newPlan)
	return args.Error(0)
}

type mockUsageRecorder struct {
	mock.Mock
}

func (m *mockUsageRecorder) Record(ctx context.Context, organizationID uint, recordedAt time.Time, count int64) error {
	args := m.Called(ctx, organizationID, recordedAt, count)
	return args.Error(0)
}

type mockUsageCacheInvalidator struct {
	mock.Mock
}

func (m *mockUsageCacheInvalidator) Invalidate(ctx context.Context, organizationID uint) error {
	args := m.Called(ctx, organizationID)
	return args.Error(0)
}

type mockQuotaChecker struct {
	mock.Mock
}

func (m *mockQuotaChecker) Execute(ctx context.Context, organizationID uint) (*QuotaResult, error) {
	args := m.Called(ctx, organizationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*QuotaResult), args.Error(1)
}

// passthroughTxRunner runs the step inline and counts invocations, so tests
// can assert a write landed under transaction scope.
type passthroughTxRunner struct {
	calls int
}

func (r *passthroughTxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func newTestLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func uintPtr(v uint) *uint       { return &v }
func uint64Ptr(v uint64) *uint64 { return &v }
func int64Ptr(v int64) *int64    { return &v }
func intPtr(v int) *int          { return &v }
func timePtr(v time.Time) *time.Time {
	return &v
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newTestPlan builds a catalog entry; nil price/quota fields select the
// derived category under test.
func newTestPlan(t *testing.T, id uint, pricePerMonth, pricePerRequest *uint64,
	monthlyQuota *int64, trialPeriodDays *int) *plan.Plan {
	t.Helper()
	p, err := plan.ReconstructPlan(id, "Test Plan", "test-plan",
		pricePerMonth, pricePerRequest, monthlyQuota, trialPeriodDays,
		1, "USD", true, 0, 1, date(2024, 1, 1), date(2024, 1, 1))
	if err != nil {
		t.Fatalf("failed to build test plan: %v", err)
	}
	return p
}

type orgFixture struct {
	planID                  *uint
	monthlyQuota            *int64
	trialExpiresAt          *time.Time
	trialPermanentlyExpired bool
	cycleStart              *time.Time
	cycleEnd                *time.Time
	pendingMonthlyPlanID    *uint
	pendingMonthlyDate      *time.Time
	pendingPPRPlanID        *uint
	pendingPPRDate          *time.Time
	lastPPRInvoiceDate      *time.Time
	enabled                 bool
}

func newTestOrganization(t *testing.T, id uint, fx orgFixture) *organization.Organization {
	t.Helper()
	org, err := organization.ReconstructOrganization(
		id, "Test Org", "billing@example.com", fx.enabled,
		fx.planID, fx.monthlyQuota, 1,
		fx.trialExpiresAt, fx.trialPermanentlyExpired,
		fx.cycleStart, fx.cycleEnd,
		fx.pendingMonthlyPlanID, fx.pendingMonthlyDate,
		fx.pendingPPRPlanID, fx.pendingPPRDate,
		fx.lastPPRInvoiceDate,
		1, date(2024, 1, 1), date(2024, 1, 1),
	)
	if err != nil {
		t.Fatalf("failed to build test organization: %v", err)
	}
	return org
}
