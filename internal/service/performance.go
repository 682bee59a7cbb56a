package service

import (
	"sort"
	"strconv"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

// GradeToPoint maps a letter grade to its point value. Unknown grades score 0.
func GradeToPoint(grade string) int {
	return models.Grade(grade).Point()
}

// ComputePerformance groups completed credit courses by semester and derives
// SPI per semester and the running CPI. Semesters are ordered numerically
// when numeric, lexically otherwise, numeric keys first.
func ComputePerformance(courses []models.CompletedCourse) []models.SemesterPerformance {
	type bucket struct {
		credits int
		points  int
	}
	buckets := make(map[string]*bucket)
	semesters := make([]string, 0)
	for _, course := range courses {
		b, ok := buckets[course.Semester]
		if !ok {
			b = &bucket{}
			buckets[course.Semester] = b
			semesters = append(semesters, course.Semester)
		}
		b.credits += course.Credits
		b.points += course.Grade.Point() * course.Credits
	}
	sort.SliceStable(semesters, func(i, j int) bool {
		return semesterLess(semesters[i], semesters[j])
	})

	result := make([]models.SemesterPerformance, 0, len(semesters))
	var cumCredits, cumPoints int
	for _, semester := range semesters {
		b := buckets[semester]
		cumCredits += b.credits
		cumPoints += b.points
		result = append(result, models.SemesterPerformance{
			Semester: semester,
			Credits:  b.credits,
			SPI:      weightedAverage(b.points, b.credits),
			CPI:      weightedAverage(cumPoints, cumCredits),
		})
	}
	return result
}

func weightedAverage(points, credits int) float64 {
	if credits == 0 {
		return 0
	}
	return round2(float64(points) / float64(credits))
}

func semesterLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if na != nb {
			return na < nb
		}
		return a < b
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}
