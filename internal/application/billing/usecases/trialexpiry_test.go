package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTrialExpiryFixture(now time.Time) (*TrialExpiryUseCase, *mockOrganizationRepository, *mockPlanRepository, *mockUsageCounter, *mockIdentityProvider) {
	orgRepo := new(mockOrganizationRepository)
	planRepo := new(mockPlanRepository)
	usage := new(mockUsageCounter)
	identity := new(mockIdentityProvider)
	uc := NewTrialExpiryUseCase(orgRepo, planRepo, usage, identity, newTestLogger())
	uc.now = func() time.Time { return now }
	return uc, orgRepo, planRepo, usage, identity
}

func TestTrialExpiryUseCase_NeverTrialedIsNotExpired(t *testing.T) {
	uc, _, _, _, _ := newTrialExpiryFixture(date(2024, 3, 15))

	org := newTestOrganization(t, 1, orgFixture{enabled: true})

	expired, err := uc.IsExpired(context.Background(), org)

	assert.NoError(t, err)
	assert.False(t, expired)
}

func TestTrialExpiryUseCase_PaidPlanOverridesExpiredTrialDate(t *testing.T) {
	uc, _, planRepo, usage, _ := newTrialExpiryFixture(date(2024, 6, 1))

	monthly := newTestPlan(t, 2, uint64Ptr(2900), nil, int64Ptr(1000), nil)
	org := newTestOrganization(t, 1, orgFixture{
		planID:  uintPtr(2),
		enabled: true,
		// Trial consumed long ago and its date has passed.
		trialExpiresAt: timePtr(date(2024, 1, 15)),
	})

	planRepo.On("GetByID", mock.Anything, uint(2)).Return(monthly, nil)

	expired, err := uc.IsExpired(context.Background(), org)

	assert.NoError(t, err)
	assert.False(t, expired)
	usage.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrialExpiryUseCase_PaidPlanOverridesLatch(t *testing.T) {
	uc, _, planRepo, _, _ := newTrialExpiryFixture(date(2024, 6, 1))

	pprPlan := newTestPlan(t, 3, nil, uint64Ptr(5), nil, nil)
	org := newTestOrganization(t, 1, orgFixture{
		planID:                  uintPtr(3),
		enabled:                 true,
		trialExpiresAt:          timePtr(date(2024, 1, 15)),
		trialPermanentlyExpired: true,
	})

	planRepo.On("GetByID", mock.Anything, uint(3)).Return(pprPlan, nil)

	expired, err := uc.IsExpired(context.Background(), org)

	assert.NoError(t, err)
	assert.False(t, expired)
	// The latch stays true in storage as a historical fact.
	assert.True(t, org.TrialPermanentlyExpired())
}

func TestTrialExpiryUseCase_QuotaIsPrimaryDateIsSecondary(t *testing.T) {
	// Trial date already passed, but quota not yet consumed: still operable.
	uc, _, planRepo, usage, _ := newTrialExpiryFixture(date(2024, 3, 20))

	trial := newTestPlan(t, 1, nil, nil, int64Ptr(20), intPtr(14))
	org := newTestOrganization(t, 1, orgFixture{
		planID:         uintPtr(1),
		enabled:        true,
		monthlyQuota:   int64Ptr(20),
		trialExpiresAt: timePtr(date(2024, 3, 10)),
	})

	planRepo.On("GetByID", mock.Anything, uint(1)).Return(trial, nil)
	usage.On("Count", mock.Anything, uint(1), mock.Anything, mock.Anything).Return(int64(19), nil)

	expired, err := uc.IsExpired(context.Background(), org)

	assert.NoError(t, err)
	assert.False(t, expired)
	assert.False(t, org.TrialPermanentlyExpired())
}

func TestTrialExpiryUseCase_TwentiethRequestLatchesPermanently(t *testing.T) {
	uc, orgRepo, planRepo, usage, identity := newTrialExpiryFixture(date(2024, 3, 15))

	trial := newTestPlan(t, 1, nil, nil, int64Ptr(20), intPtr(14))
	org := newTestOrganization(t, 1, orgFixture{
		planID:         uintPtr(1),
		enabled:        true,
		monthlyQuota:   int64Ptr(20),
		trialExpiresAt: timePtr(date(2024, 3, 29)),
	})

	planRepo.On("GetByID", mock.Anything, uint(1)).Return(trial, nil)
	usage.On("Count", mock.Anything, uint(1), mock.Anything, mock.Anything).Return(int64(20), nil)
	orgRepo.On("Update", mock.Anything, org).Return(nil)
	identity.On("SuspendAllMembers", mock.Anything, uint(1)).Return(nil)

	expired, err := uc.IsExpired(context.Background(), org)

	assert.NoError(t, err)
	assert.True(t, expired)
	assert.True(t, org.TrialPermanentlyExpired())
	orgRepo.AssertExpectations(t)
	identity.AssertExpectations(t)
}

func TestTrialExpiryUseCase_LatchShortCircuitsAfterMonthRollover(t *testing.T) {
	// Once latched, a new calendar month with zero usage must not revive
	// the trial. The usage counter must not even be consulted.
	uc, orgRepo, planRepo, usage, identity := newTrialExpiryFixture(date(2024, 4, 1))

	trial := newTestPlan(t, 1, nil, nil, int64Ptr(20), intPtr(14))
	org := newTestOrganization(t, 1, orgFixture{
		planID:                  uintPtr(1),
		enabled:                 true,
		monthlyQuota:            int64Ptr(20),
		trialExpiresAt:          timePtr(date(2024, 3, 29)),
		trialPermanentlyExpired: true,
	})

	planRepo.On("GetByID", mock.Anything, uint(1)).Return(trial, nil)

	expired, err := uc.IsExpired(context.Background(), org)

	assert.NoError(t, err)
	assert.True(t, expired)
	usage.AssertNotCalled(t, "Count", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	orgRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	identity.AssertNotCalled(t, "SuspendAllMembers", mock.Anything, mock.Anything)
}

func TestTrialExpiryUseCase_QuotalessTrialFallsBackToDate(t *testing.T) {
	tests := []struct {
		name        string
		now         time.Time
		wantExpired bool
	}{
		{"before expiry date", date(2024, 3, 20), false},
		{"after expiry date", date(2024, 4, 2), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc, _, planRepo, _, _ := newTrialExpiryFixture(tt.now)

			trial := newTestPlan(t, 1, nil, nil, nil, intPtr(14))
			org := newTestOrganization(t, 1, orgFixture{
				planID:         uintPtr(1),
				enabled:        true,
				trialExpiresAt: timePtr(date(2024, 4, 1)),
			})

			planRepo.On("GetByID", mock.Anything, uint(1)).Return(trial, nil)

			expired, err := uc.IsExpired(context.Background(), org)

			assert.NoError(t, err)
			assert.Equal(t, tt.wantExpired, expired)
		})
	}
}

func TestTrialExpiryUseCase_LatchSurvivesCollaboratorFailures(t *testing.T) {
	uc, orgRepo, planRepo, usage, identity := newTrialExpiryFixture(date(2024, 3, 15))

	trial := newTestPlan(t, 1, nil, nil, int64Ptr(20), intPtr(14))
	org := newTestOrganization(t, 1, orgFixture{
		planID:         uintPtr(1),
		enabled:        true,
		monthlyQuota:   int64Ptr(20),
		trialExpiresAt: timePtr(date(2024, 3, 29)),
	})

	planRepo.On("GetByID", mock.Anything, uint(1)).Return(trial, nil)
	usage.On("Count", mock.Anything, uint(1), mock.Anything, mock.Anything).Return(int64(25), nil)
	orgRepo.On("Update", mock.Anything, org).Return(nil)
	identity.On("SuspendAllMembers", mock.Anything, uint(1)).Return(assert.AnError)

	expired, err := uc.IsExpired(context.Background(), org)

	// The expiry verdict stands even when suspension fails.
	assert.NoError(t, err)
	assert.True(t, expired)
}

func TestTrialExpiryUseCase_CanOperate(t *testing.T) {
	t.Run("disabled organization cannot operate", func(t *testing.T) {
		uc, orgRepo, _, _, _ := newTrialExpiryFixture(date(2024, 3, 15))

		org := newTestOrganization(t, 1, orgFixture{enabled: false})
		orgRepo.On("GetByID", mock.Anything, uint(1)).Return(org, nil)

		ok, err := uc.CanOperate(context.Background(), 1)

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("enabled non-trial organization can operate", func(t *testing.T) {
		uc, orgRepo, _, _, _ := newTrialExpiryFixture(date(2024, 3, 15))

		org := newTestOrganization(t, 1, orgFixture{enabled: true})
		orgRepo.On("GetByID", mock.Anything, uint(1)).Return(org, nil)

		ok, err := uc.CanOperate(context.Background(), 1)

		assert.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("latched trial organization cannot operate", func(t *testing.T) {
		uc, orgRepo, planRepo, _, _ := newTrialExpiryFixture(date(2024, 3, 15))

		trial := newTestPlan(t, 1, nil, nil, int64Ptr(20), intPtr(14))
		org := newTestOrganization(t, 1, orgFixture{
			planID:                  uintPtr(1),
			enabled:                 true,
			monthlyQuota:            int64Ptr(20),
			trialExpiresAt:          timePtr(date(2024, 3, 29)),
			trialPermanentlyExpired: true,
		})
		orgRepo.On("GetByID", mock.Anything, uint(1)).Return(org, nil)
		planRepo.On("GetByID", mock.Anything, uint(1)).Return(trial, nil)

		ok, err := uc.CanOperate(context.Background(), 1)

		assert.NoError(t, err)
		assert.False(t, ok)
	})
}
