package service

import (
	"math"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

// makeupFactor is the number of attended classes each missed class costs.
const makeupFactor = 3

// ComputeAttendanceStats derives percentage and required makeup classes from
// approved attended and missed counts.
func ComputeAttendanceStats(attended, missed int) models.AttendanceStats {
	if attended < 0 {
		attended = 0
	}
	if missed < 0 {
		missed = 0
	}
	stats := models.AttendanceStats{Attended: attended, Missed: missed}
	if total := attended + missed; total > 0 {
		stats.Percentage = round2(float64(attended) / float64(total) * 100)
	}
	if makeup := makeupFactor*missed - attended; makeup > 0 {
		stats.RequiredMakeupClasses = makeup
	}
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
