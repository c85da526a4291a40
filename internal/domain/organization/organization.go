package organization

import (
	"fmt"
	"time"
)

// Organization is the plan snapshot aggregate. It tracks which pricing plan
// an organization is on, the current monthly cycle, queued deferred plan
// changes, and the one-way trial consumption state. All date fields are
// stored as UTC instants at business-day boundaries.
type Organization struct {
	id           uint
	name         string
	billingEmail string
	enabled      bool

	pricingPlanID *uint
	// monthlyQuota mirrors the plan's quota at assignment time for
	// point-in-time stability; nil means unlimited for the current cycle.
	monthlyQuota  *int64
	marketVersion int

	// trialExpiresAt being non-nil means a trial has been consumed at some
	// point, regardless of its value.
	trialExpiresAt          *time.Time
	trialPermanentlyExpired bool

	monthlyPlanStartDate *time.Time
	monthlyPlanEndDate   *time.Time

	pendingMonthlyPlanID         *uint
	pendingMonthlyPlanChangeDate *time.Time

	pendingPayPerRequestPlanID     *uint
	pendingPayPerRequestChangeDate *time.Time

	lastPayPerRequestInvoiceDate *time.Time

	version int
	// persistedVersion is the version currently held by the store. The
	// in-memory version advances on every mutation; the optimistic-lock
	// guard must compare against what the row actually holds.
	persistedVersion int

	createdAt time.Time
	updatedAt time.Time
}

func NewOrganization(name, billingEmail string, marketVersion int) (*Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	if marketVersion < 1 {
		return nil, fmt.Errorf("market version must be positive")
	}

	now := time.Now().UTC()
	return &Organization{
		name:          name,
		billingEmail:  billingEmail,
		enabled:       true,
		marketVersion: marketVersion,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructOrganization rebuilds the snapshot from persistence.
func ReconstructOrganization(
	id uint,
	name, billingEmail string,
	enabled bool,
	pricingPlanID *uint,
	monthlyQuota *int64,
	marketVersion int,
	trialExpiresAt *time.Time,
	trialPermanentlyExpired bool,
	monthlyPlanStartDate, monthlyPlanEndDate *time.Time,
	pendingMonthlyPlanID *uint,
	pendingMonthlyPlanChangeDate *time.Time,
	pendingPayPerRequestPlanID *uint,
	pendingPayPerRequestChangeDate *time.Time,
	lastPayPerRequestInvoiceDate *time.Time,
	version int,
	createdAt, updatedAt time.Time,
) (*Organization, error) {
	if id == 0 {
		return nil, fmt.Errorf("organization ID cannot be zero")
	}
	if pendingMonthlyPlanID != nil && pendingPayPerRequestPlanID != nil {
		return nil, fmt.Errorf("at most one pending plan change may be set")
	}
	if (monthlyPlanStartDate == nil) != (monthlyPlanEndDate == nil) {
		return nil, fmt.Errorf("monthly cycle dates must both be set or both be null")
	}

	return &Organization{
		id:                             id,
		name:                           name,
		billingEmail:                   billingEmail,
		enabled:                        enabled,
		pricingPlanID:                  pricingPlanID,
		monthlyQuota:                   monthlyQuota,
		marketVersion:                  marketVersion,
		trialExpiresAt:                 trialExpiresAt,
		trialPermanentlyExpired:        trialPermanentlyExpired,
		monthlyPlanStartDate:           monthlyPlanStartDate,
		monthlyPlanEndDate:             monthlyPlanEndDate,
		pendingMonthlyPlanID:           pendingMonthlyPlanID,
		pendingMonthlyPlanChangeDate:   pendingMonthlyPlanChangeDate,
		pendingPayPerRequestPlanID:     pendingPayPerRequestPlanID,
		pendingPayPerRequestChangeDate: pendingPayPerRequestChangeDate,
		lastPayPerRequestInvoiceDate:   lastPayPerRequestInvoiceDate,
		version:                        version,
		persistedVersion:               version,
		createdAt:                      createdAt,
		updatedAt:                      updatedAt,
	}, nil
}

func (o *Organization) ID() uint {
	return o.id
}

// SetID sets the organization ID (only for persistence layer use)
func (o *Organization) SetID(id uint) error {
	if o.id != 0 {
		return fmt.Errorf("organization ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("organization ID cannot be zero")
	}
	o.id = id
	return nil
}

func (o *Organization) Name() string {
	return o.name
}

func (o *Organization) BillingEmail() string {
	return o.billingEmail
}

func (o *Organization) Enabled() bool {
	return o.enabled
}

func (o *Organization) PricingPlanID() *uint {
	return o.pricingPlanID
}

func (o *Organization) MonthlyQuota() *int64 {
	return o.monthlyQuota
}

func (o *Organization) MarketVersion() int {
	return o.marketVersion
}

func (o *Organization) TrialExpiresAt() *time.Time {
	return o.trialExpiresAt
}

func (o *Organization) TrialPermanentlyExpired() bool {
	return o.trialPermanentlyExpired
}

func (o *Organization) MonthlyPlanStartDate() *time.Time {
	return o.monthlyPlanStartDate
}

func (o *Organization) MonthlyPlanEndDate() *time.Time {
	return o.monthlyPlanEndDate
}

func (o *Organization) PendingMonthlyPlanID() *uint {
	return o.pendingMonthlyPlanID
}

func (o *Organization) PendingMonthlyPlanChangeDate() *time.Time {
	return o.pendingMonthlyPlanChangeDate
}

func (o *Organization) PendingPayPerRequestPlanID() *uint {
	return o.pendingPayPerRequestPlanID
}

func (o *Organization) PendingPayPerRequestChangeDate() *time.Time {
	return o.pendingPayPerRequestChangeDate
}

func (o *Organization) LastPayPerRequestInvoiceDate() *time.Time {
	return o.lastPayPerRequestInvoiceDate
}

// Version returns the aggregate version for optimistic locking
func (o *Organization) Version() int {
	return o.version
}

// PersistedVersion returns the version the store last confirmed. Several
// mutations may land between loads, so concurrency guards must compare
// against this rather than Version()-1.
func (o *Organization) PersistedVersion() int {
	return o.persistedVersion
}

// MarkPersisted records that the current version has been written to the
// store (only for persistence layer use).
func (o *Organization) MarkPersisted() {
	o.persistedVersion = o.version
}

func (o *Organization) CreatedAt() time.Time {
	return o.createdAt
}

func (o *Organization) UpdatedAt() time.Time {
	return o.updatedAt
}

// HasMonthlyCycle reports whether both monthly cycle dates are set.
func (o *Organization) HasMonthlyCycle() bool {
	return o.monthlyPlanStartDate != nil && o.monthlyPlanEndDate != nil
}

// HasConsumedTrial reports whether the organization has ever activated a
// trial. Presence of trialExpiresAt is the one-time marker; the permanent
// expiry latch implies consumption as well.
func (o *Organization) HasConsumedTrial() bool {
	return o.trialExpiresAt != nil || o.trialPermanentlyExpired
}

// HasPendingChange reports whether any deferred plan change is queued.
func (o *Organization) HasPendingChange() bool {
	return o.pendingMonthlyPlanID != nil || o.pendingPayPerRequestPlanID != nil
}

// AssignPlan sets the active plan and the mirrored quota, clearing every
// pending-change field. planID may be nil to leave the organization without
// a plan.
func (o *Organization) AssignPlan(planID *uint, monthlyQuota *int64) {
	o.pricingPlanID = planID
	o.monthlyQuota = monthlyQuota
	o.clearPending()
	o.touch()
}

// StartTrial assigns a trial plan and records trial consumption. It fails if
// the organization has already consumed its one-time trial.
func (o *Organization) StartTrial(planID uint, monthlyQuota *int64, expiresAt time.Time) error {
	if o.HasConsumedTrial() {
		return ErrTrialAlreadyConsumed
	}
	o.pricingPlanID = &planID
	o.monthlyQuota = monthlyQuota
	o.trialExpiresAt = &expiresAt
	o.clearPending()
	o.touch()
	return nil
}

// StartMonthlyCycle sets the inclusive monthly billing window.
func (o *Organization) StartMonthlyCycle(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("cycle end must not be before cycle start")
	}
	o.monthlyPlanStartDate = &start
	o.monthlyPlanEndDate = &end
	o.touch()
	return nil
}

// ClearMonthlyCycle removes the cycle window when leaving a monthly plan.
func (o *Organization) ClearMonthlyCycle() {
	o.monthlyPlanStartDate = nil
	o.monthlyPlanEndDate = nil
	o.touch()
}

// ScheduleMonthlyChange queues a monthly-to-monthly plan change taking effect
// at the given date (normally the current cycle end). Any queued
// pay-per-request change is replaced, preserving the at-most-one-pending
// invariant.
func (o *Organization) ScheduleMonthlyChange(planID uint, changeDate time.Time) error {
	if !o.HasMonthlyCycle() {
		return ErrNoActiveCycle
	}
	o.pendingMonthlyPlanID = &planID
	o.pendingMonthlyPlanChangeDate = &changeDate
	o.pendingPayPerRequestPlanID = nil
	o.pendingPayPerRequestChangeDate = nil
	o.touch()
	return nil
}

// SchedulePayPerRequestChange queues a monthly-to-pay-per-request change
// taking effect at the earlier of the given date or quota exhaustion. Any
// queued monthly change is replaced.
func (o *Organization) SchedulePayPerRequestChange(planID uint, changeDate time.Time) error {
	if !o.HasMonthlyCycle() {
		return ErrNoActiveCycle
	}
	o.pendingPayPerRequestPlanID = &planID
	o.pendingPayPerRequestChangeDate = &changeDate
	o.pendingMonthlyPlanID = nil
	o.pendingMonthlyPlanChangeDate = nil
	o.touch()
	return nil
}

// ClearPendingChanges drops any queued deferred change.
func (o *Organization) ClearPendingChanges() {
	if !o.HasPendingChange() {
		return
	}
	o.clearPending()
	o.touch()
}

// LatchTrialExpired flips the one-way trial expiry latch. Returns true when
// the latch was newly set; the flag is never reset.
func (o *Organization) LatchTrialExpired() bool {
	if o.trialPermanentlyExpired {
		return false
	}
	o.trialPermanentlyExpired = true
	o.touch()
	return true
}

// MarkPayPerRequestInvoiced advances the incremental billing watermark.
func (o *Organization) MarkPayPerRequestInvoiced(date time.Time) {
	o.lastPayPerRequestInvoiceDate = &date
	o.touch()
}

func (o *Organization) Enable() {
	if o.enabled {
		return
	}
	o.enabled = true
	o.touch()
}

func (o *Organization) Disable() {
	if !o.enabled {
		return
	}
	o.enabled = false
	o.touch()
}

func (o *Organization) clearPending() {
	o.pendingMonthlyPlanID = nil
	o.pendingMonthlyPlanChangeDate = nil
	o.pendingPayPerRequestPlanID = nil
	o.pendingPayPerRequestChangeDate = nil
}

func (o *Organization) touch() {
	o.updatedAt = time.Now().UTC()
	o.version++
}
