package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FeedbackSection groups questions for statistics.
type FeedbackSection string

const (
	FeedbackSectionCourseContent FeedbackSection = "COURSE_CONTENT"
	FeedbackSectionTeaching      FeedbackSection = "TEACHING"
	FeedbackSectionAssessment    FeedbackSection = "ASSESSMENT"
)

// FeedbackRating is a single question answer on a whole-number 1-5 scale.
type FeedbackRating struct {
	QuestionID string `json:"question_id"`
	Rating     int    `json:"rating"`
}

// FeedbackRatings is stored as a JSONB array.
type FeedbackRatings []FeedbackRating

// Value implements driver.Valuer.
func (r FeedbackRatings) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner.
func (r *FeedbackRatings) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported ratings type %T", src)
	}
}

// FeedbackEntry is one student's feedback for a faculty/course pair.
type FeedbackEntry struct {
	ID         string          `db:"id" json:"id"`
	StudentID  string          `db:"student_id" json:"student_id"`
	FacultyID  string          `db:"faculty_id" json:"faculty_id"`
	CourseCode string          `db:"course_code" json:"course_code"`
	Ratings    FeedbackRatings `db:"ratings" json:"ratings"`
	Comments   string          `db:"comments" json:"comments"`
	Active     bool            `db:"active" json:"active"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updated_at"`
}

// QuestionStatistics aggregates the answers to one question.
type QuestionStatistics struct {
	QuestionID string      `json:"question_id"`
	Average    float64     `json:"average"`
	Responses  int         `json:"responses"`
	Histogram  map[int]int `json:"histogram"`
}

// SectionStatistics groups question statistics.
type SectionStatistics struct {
	Section   FeedbackSection      `json:"section"`
	Average   float64              `json:"average"`
	Questions []QuestionStatistics `json:"questions"`
}

// FeedbackStatistics is the aggregate view for a faculty/course pair.
type FeedbackStatistics struct {
	FacultyID      string              `json:"faculty_id"`
	CourseCode     string              `json:"course_code"`
	TotalResponses int                 `json:"total_responses"`
	OverallAverage float64             `json:"overall_average"`
	Sections       []SectionStatistics `json:"sections"`
	Comments       []string            `json:"comments"`
}

// FeedbackSettings is the public view of the feedback toggle.
type FeedbackSettings struct {
	Enabled   bool       `json:"enabled"`
	UpdatedBy *string    `json:"updated_by,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
