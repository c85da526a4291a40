package organization

import "time"

// CycleEnd returns the inclusive end date of a monthly cycle starting at the
// given date: one calendar month later, minus one day. A cycle starting
// 2024-01-10 ends 2024-02-09.
func CycleEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, 0).AddDate(0, 0, -1)
}
