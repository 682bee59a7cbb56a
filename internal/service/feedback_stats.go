package service

import (
	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

const (
	minRating = 1
	maxRating = 5
)

type feedbackSectionDef struct {
	section   models.FeedbackSection
	questions []string
}

var feedbackSections = []feedbackSectionDef{
	{section: models.FeedbackSectionCourseContent, questions: []string{"Q1", "Q2", "Q3"}},
	{section: models.FeedbackSectionTeaching, questions: []string{"Q4", "Q5", "Q6", "Q7"}},
	{section: models.FeedbackSectionAssessment, questions: []string{"Q8", "Q9", "Q10"}},
}

var knownQuestions = func() map[string]models.FeedbackSection {
	known := make(map[string]models.FeedbackSection)
	for _, def := range feedbackSections {
		for _, q := range def.questions {
			known[q] = def.section
		}
	}
	return known
}()

// IsKnownQuestion reports whether id belongs to a feedback section.
func IsKnownQuestion(id string) bool {
	_, ok := knownQuestions[id]
	return ok
}

// ClampRating bounds a rating to [1,5].
func ClampRating(rating int) int {
	switch {
	case rating < minRating:
		return minRating
	case rating > maxRating:
		return maxRating
	}
	return rating
}

// BuildFeedbackStatistics aggregates entries into per-question averages and
// 1-5 histograms grouped by section.
func BuildFeedbackStatistics(facultyID, courseCode string, entries []models.FeedbackEntry) models.FeedbackStatistics {
	type accumulator struct {
		sum       float64
		count     int
		histogram map[int]int
	}
	perQuestion := make(map[string]*accumulator)
	for q := range knownQuestions {
		perQuestion[q] = &accumulator{histogram: emptyHistogram()}
	}

	stats := models.FeedbackStatistics{
		FacultyID:  facultyID,
		CourseCode: courseCode,
		Sections:   make([]models.SectionStatistics, 0, len(feedbackSections)),
		Comments:   []string{},
	}

	var overallSum float64
	var overallCount int
	for _, entry := range entries {
		if !entry.Active {
			continue
		}
		stats.TotalResponses++
		if entry.Comments != "" {
			stats.Comments = append(stats.Comments, entry.Comments)
		}
		for _, rating := range entry.Ratings {
			acc, ok := perQuestion[rating.QuestionID]
			if !ok {
				continue
			}
			value := ClampRating(rating.Rating)
			acc.sum += float64(value)
			acc.count++
			acc.histogram[value]++
			overallSum += float64(value)
			overallCount++
		}
	}

	for _, def := range feedbackSections {
		section := models.SectionStatistics{Section: def.section, Questions: make([]models.QuestionStatistics, 0, len(def.questions))}
		var sectionSum float64
		var sectionCount int
		for _, q := range def.questions {
			acc := perQuestion[q]
			section.Questions = append(section.Questions, models.QuestionStatistics{
				QuestionID: q,
				Average:    average(acc.sum, acc.count),
				Responses:  acc.count,
				Histogram:  acc.histogram,
			})
			sectionSum += acc.sum
			sectionCount += acc.count
		}
		section.Average = average(sectionSum, sectionCount)
		stats.Sections = append(stats.Sections, section)
	}
	stats.OverallAverage = average(overallSum, overallCount)
	return stats
}

func emptyHistogram() map[int]int {
	histogram := make(map[int]int, maxRating)
	for bucket := minRating; bucket <= maxRating; bucket++ {
		histogram[bucket] = 0
	}
	return histogram
}

func average(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return round2(sum / float64(count))
}
