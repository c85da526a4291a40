package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tollgate/internal/application/billing/usecases"
	"tollgate/internal/domain/organization"
	"tollgate/internal/domain/plan"
	"tollgate/internal/infrastructure/config"
	"tollgate/internal/infrastructure/identity"
	"tollgate/internal/infrastructure/invoicing"
	"tollgate/internal/infrastructure/persistence"
	"tollgate/internal/infrastructure/repository"
	"tollgate/internal/interfaces/http/handlers"
	sharedConfig "tollgate/internal/shared/config"
	shareddb "tollgate/internal/shared/db"
	"tollgate/internal/shared/logger"
)

type noopNotifier struct{}

func (n *noopNotifier) PlanChanged(ctx context.Context, org *organization.Organization, oldPlan, newPlan *plan.Plan) error {
	return nil
}

type apiFixture struct {
	engine   *gin.Engine
	orgRepo  organization.Repository
	planRepo plan.Repository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	log := logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))

	orgRepo := repository.NewOrganizationRepository(db, log)
	planRepo := repository.NewPricingPlanRepository(db, log)
	invoiceRepo := repository.NewInvoiceRepository(db, log)
	usageRepo := repository.NewUsageRepository(db, log)

	invoiceGen := invoicing.NewGenerator(invoiceRepo, usageRepo, log)
	identityProvider := identity.NewProvider(db, log)
	notifier := &noopNotifier{}

	quotaUC := usecases.NewCheckQuotaUseCase(orgRepo, planRepo, usageRepo, log)
	trialExpiryUC := usecases.NewTrialExpiryUseCase(orgRepo, planRepo, usageRepo, identityProvider, log)
	changePlanUC := usecases.NewChangePlanUseCase(orgRepo, planRepo, quotaUC, invoiceGen, identityProvider, notifier, log)
	recordUsageUC := usecases.NewRecordUsageUseCase(orgRepo, usageRepo, nil, quotaUC, log)
	getOrgUC := usecases.NewGetOrganizationUseCase(orgRepo, log)
	listPlansUC := usecases.NewListActivePlansUseCase(planRepo, log)
	listInvoicesUC := usecases.NewListInvoicesUseCase(orgRepo, invoiceRepo, log)

	txMgr := shareddb.NewTransactionManager(db)
	dueChangesUC := usecases.NewApplyDueMonthlyChangesUseCase(orgRepo, planRepo, invoiceGen, notifier, txMgr, log)
	renewCyclesUC := usecases.NewRenewCyclesUseCase(orgRepo, planRepo, invoiceGen, txMgr, log)
	resolvePPRUC := usecases.NewResolvePayPerRequestUseCase(orgRepo, planRepo, quotaUC, invoiceGen, notifier, txMgr, log)
	reconcileUC := usecases.NewRunDailyReconciliationUseCase(dueChangesUC, renewCyclesUC, resolvePPRUC, log)

	orgHandler := handlers.NewOrganizationHandler(
		quotaUC, trialExpiryUC, changePlanUC, recordUsageUC, getOrgUC, listInvoicesUC, log)
	planHandler := handlers.NewPlanHandler(listPlansUC, log)
	adminHandler := handlers.NewAdminHandler(reconcileUC, log)

	router := NewRouter(orgHandler, planHandler, adminHandler, log)
	router.SetupRoutes(&config.Config{
		Server: sharedConfig.ServerConfig{AllowedOrigins: []string{"http://localhost:3000"}},
	})

	return &apiFixture{
		engine:   router.GetEngine(),
		orgRepo:  orgRepo,
		planRepo: planRepo,
	}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) seedPlan(t *testing.T, name, slug string, pricePerMonth, pricePerRequest *uint64,
	monthlyQuota *int64, trialDays *int) *plan.Plan {
	t.Helper()

	p, err := plan.NewPlan(name, slug, pricePerMonth, pricePerRequest, monthlyQuota, trialDays, 1, "USD")
	require.NoError(t, err)
	require.NoError(t, f.planRepo.Create(context.Background(), p))
	return p
}

func (f *apiFixture) seedOrganization(t *testing.T, name string) *organization.Organization {
	t.Helper()

	org, err := organization.NewOrganization(name, name+"@example.com", 1)
	require.NoError(t, err)
	require.NoError(t, f.orgRepo.Create(context.Background(), org))
	return org
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	return envelope.Data
}

func uint64Ptr(v uint64) *uint64 { return &v }
func int64Ptr(v int64) *int64    { return &v }

func TestAPI_HealthCheck(t *testing.T) {
	f := newAPIFixture(t)

	w := f.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_ListPlans(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil)
	f.seedPlan(t, "Metered", "metered", nil, uint64Ptr(5), nil, nil)

	w := f.request(t, http.MethodGet, "/api/plans", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
		Data    []struct {
			Slug     string `json:"slug"`
			Category string `json:"category"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
}

func TestAPI_PlanChangeAndQuotaFlow(t *testing.T) {
	f := newAPIFixture(t)
	starter := f.seedPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil)
	org := f.seedOrganization(t, "acme")

	// First plan applies immediately and opens a monthly cycle.
	w := f.request(t, http.MethodPut, fmt.Sprintf("/api/organizations/%d/plan", org.ID()),
		map[string]any{"plan_id": starter.ID()})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(starter.ID()), data["pricing_plan_id"])
	assert.NotNil(t, data["monthly_plan_start_date"])
	assert.NotNil(t, data["monthly_plan_end_date"])

	// Usage is admitted while under quota.
	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/organizations/%d/usage", org.ID()),
		map[string]any{"count": 10})
	require.Equal(t, http.StatusCreated, w.Code)

	quota := decodeData(t, f.request(t, http.MethodGet, fmt.Sprintf("/api/organizations/%d/quota", org.ID()), nil))
	assert.Equal(t, true, quota["ok"])
	assert.Equal(t, float64(10), quota["usage"])
	assert.Equal(t, float64(1000), quota["quota"])
}

func TestAPI_QuotaOverageReportsFallback(t *testing.T) {
	f := newAPIFixture(t)
	starter := f.seedPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(5), nil)
	metered := f.seedPlan(t, "Metered", "metered", nil, uint64Ptr(3), nil, nil)
	org := f.seedOrganization(t, "acme")

	w := f.request(t, http.MethodPut, fmt.Sprintf("/api/organizations/%d/plan", org.ID()),
		map[string]any{"plan_id": starter.ID()})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.request(t, http.MethodPost, fmt.Sprintf("/api/organizations/%d/usage", org.ID()),
		map[string]any{"count": 5})
	require.Equal(t, http.StatusCreated, w.Code)

	quota := decodeData(t, f.request(t, http.MethodGet, fmt.Sprintf("/api/organizations/%d/quota", org.ID()), nil))
	assert.Equal(t, false, quota["ok"])
	assert.Equal(t, float64(3), quota["fallback_price_per_request"])
	assert.Equal(t, float64(metered.ID()), quota["fallback_plan_id"])
}

func TestAPI_CanOperate(t *testing.T) {
	f := newAPIFixture(t)
	org := f.seedOrganization(t, "acme")

	data := decodeData(t, f.request(t, http.MethodGet, fmt.Sprintf("/api/organizations/%d/can-operate", org.ID()), nil))
	assert.Equal(t, true, data["can_operate"])
}

func TestAPI_UnknownOrganizationIsNotFound(t *testing.T) {
	f := newAPIFixture(t)

	w := f.request(t, http.MethodGet, "/api/organizations/999/quota", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_InvalidOrganizationIDIsRejected(t *testing.T) {
	f := newAPIFixture(t)

	w := f.request(t, http.MethodGet, "/api/organizations/abc/quota", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_AdminReconciliationRun(t *testing.T) {
	f := newAPIFixture(t)

	w := f.request(t, http.MethodPost, "/api/admin/reconciliation/run", nil)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeData(t, w)
	assert.Equal(t, float64(0), data["due_changes_applied"])
	assert.Equal(t, float64(0), data["failures"])
}

func TestAPI_ListInvoicesEmpty(t *testing.T) {
	f := newAPIFixture(t)
	org := f.seedOrganization(t, "acme")

	w := f.request(t, http.MethodGet, fmt.Sprintf("/api/organizations/%d/invoices", org.ID()), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool  `json:"success"`
		Data    []any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
	assert.Empty(t, envelope.Data)
}
