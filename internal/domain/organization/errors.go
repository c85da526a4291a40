package organization

import "errors"

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrTrialAlreadyConsumed = errors.New("trial already consumed")
	ErrNoActiveCycle        = errors.New("no active monthly cycle")
	ErrVersionConflict      = errors.New("organization snapshot version conflict")
)
