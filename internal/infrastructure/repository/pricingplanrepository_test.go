package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tollgate/internal/domain/plan"
)

func TestPricingPlanRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())
	ctx := context.Background()

	p := newTestPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil, 1)
	require.NoError(t, repo.Create(ctx, p))
	require.NotZero(t, p.ID())

	found, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Starter", found.Name())
	assert.Equal(t, uint64(900), *found.PricePerMonth())
	assert.Equal(t, plan.CategoryMonthly, found.Category())

	bySlug, err := repo.GetBySlug(ctx, "starter")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, p.ID(), bySlug.ID())
}

func TestPricingPlanRepository_CreatePersistsInactiveFlag(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())
	ctx := context.Background()

	retired := newTestPlan(t, "Legacy", "legacy", uint64Ptr(500), nil, int64Ptr(500), nil, 1)
	retired.Deactivate()
	require.NoError(t, repo.Create(ctx, retired))

	found, err := repo.GetByID(ctx, retired.ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.False(t, found.IsActive())
}

func TestPricingPlanRepository_GetMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())

	found, err := repo.GetByID(context.Background(), 42)
	assert.NoError(t, err)
	assert.Nil(t, found)
}

func TestPricingPlanRepository_DuplicateSlugFails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())
	ctx := context.Background()

	first := newTestPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil, 1)
	require.NoError(t, repo.Create(ctx, first))

	second := newTestPlan(t, "Starter Copy", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil, 1)
	assert.Error(t, repo.Create(ctx, second))
}

func TestPricingPlanRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())
	ctx := context.Background()

	starter := newTestPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil, 1)
	starter.SetSortOrder(2)
	require.NoError(t, repo.Create(ctx, starter))

	pro := newTestPlan(t, "Professional", "professional", uint64Ptr(2900), nil, int64Ptr(5000), nil, 1)
	pro.SetSortOrder(1)
	require.NoError(t, repo.Create(ctx, pro))

	retired := newTestPlan(t, "Legacy", "legacy", uint64Ptr(500), nil, int64Ptr(500), nil, 1)
	retired.Deactivate()
	require.NoError(t, repo.Create(ctx, retired))

	otherMarket := newTestPlan(t, "Starter v2", "starter-v2", uint64Ptr(1100), nil, int64Ptr(1000), nil, 2)
	require.NoError(t, repo.Create(ctx, otherMarket))

	plans, err := repo.ListActive(ctx, 1)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "Professional", plans[0].Name())
	assert.Equal(t, "Starter", plans[1].Name())
}

func TestPricingPlanRepository_FindActivePayPerRequestPlan(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())
	ctx := context.Background()

	t.Run("empty catalog returns nil", func(t *testing.T) {
		found, err := repo.FindActivePayPerRequestPlan(ctx, 1)
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	monthly := newTestPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil, 1)
	require.NoError(t, repo.Create(ctx, monthly))

	// Trial precedence: a per-request price on a trial plan does not make it
	// the overage fallback.
	trial := newTestPlan(t, "Trial", "trial", nil, uint64Ptr(3), int64Ptr(20), intPtr(14), 1)
	require.NoError(t, repo.Create(ctx, trial))

	inactive := newTestPlan(t, "Metered Old", "metered-old", nil, uint64Ptr(4), nil, nil, 1)
	inactive.Deactivate()
	require.NoError(t, repo.Create(ctx, inactive))

	metered := newTestPlan(t, "Metered", "metered", nil, uint64Ptr(5), nil, nil, 1)
	require.NoError(t, repo.Create(ctx, metered))

	found, err := repo.FindActivePayPerRequestPlan(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, metered.ID(), found.ID())
	assert.Equal(t, plan.CategoryPayPerRequest, found.Category())

	t.Run("market version filter", func(t *testing.T) {
		found, err := repo.FindActivePayPerRequestPlan(ctx, 2)
		assert.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestPricingPlanRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPricingPlanRepository(db, newTestLogger())
	ctx := context.Background()

	p := newTestPlan(t, "Starter", "starter", uint64Ptr(900), nil, int64Ptr(1000), nil, 1)
	require.NoError(t, repo.Create(ctx, p))

	p.Deactivate()
	require.NoError(t, repo.Update(ctx, p))

	found, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, found.IsActive())
}
