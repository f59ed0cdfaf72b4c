// Package streak implements contiguous-run analysis over a boolean condition
// series. Every strategy's trend and opportunity checks reduce to it; only
// the condition and the window differ.
package streak

import (
	"time"

	"scannerpro/internal/model"
)

// Point is one dated observation of a condition.
type Point struct {
	Date time.Time
	OK   bool
}

// Result describes the state of the condition's most recent run.
type Result struct {
	Status   model.StreakStatus
	Boundary time.Time // start of the active run, or last true date when inactive
	Days     int       // days from Boundary to today
}

// Detect classifies the condition series, ordered ascending by date, against
// the reference date `today`.
//
// Active: the last point is true; Boundary is the earliest date of the
// unbroken trailing run (which may reach the first point). A boundary in the
// future (a weekly bucket that has not closed yet) caps Days at zero.
// Inactive: the last point is false but the condition held somewhere;
// Boundary is the most recent true date, with no future-capping.
// None: the condition never held, or the series is empty.
func Detect(points []Point, today time.Time) Result {
	if len(points) == 0 {
		return Result{Status: model.StreakNone}
	}
	today = model.DateOnly(today)

	last := len(points) - 1
	if points[last].OK {
		start := last
		for start > 0 && points[start-1].OK {
			start--
		}
		boundary := model.DateOnly(points[start].Date)
		days := daysBetween(boundary, today)
		if days < 0 {
			days = 0
		}
		return Result{Status: model.StreakActive, Boundary: boundary, Days: days}
	}

	for i := last; i >= 0; i-- {
		if points[i].OK {
			boundary := model.DateOnly(points[i].Date)
			return Result{
				Status:   model.StreakInactive,
				Boundary: boundary,
				Days:     daysBetween(boundary, today),
			}
		}
	}
	return Result{Status: model.StreakNone}
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
