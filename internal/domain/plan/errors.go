package plan

import "errors"

var (
	ErrPlanNotFound = errors.New("pricing plan not found")
	ErrPlanInactive = errors.New("pricing plan inactive")
)
