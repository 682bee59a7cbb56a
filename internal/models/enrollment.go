package models

import "time"

// EnrollmentStatus represents enrollment states.
type EnrollmentStatus string

const (
	EnrollmentStatusApproved EnrollmentStatus = "APPROVED"
)

// Grade is a letter grade from the closed grading set.
type Grade string

const (
	GradeAA Grade = "AA"
	GradeAB Grade = "AB"
	GradeBB Grade = "BB"
	GradeBC Grade = "BC"
	GradeCC Grade = "CC"
	GradeCD Grade = "CD"
	GradeDD Grade = "DD"
	GradeFF Grade = "FF"
)

var gradePoints = map[Grade]int{
	GradeAA: 10,
	GradeAB: 9,
	GradeBB: 8,
	GradeBC: 7,
	GradeCC: 6,
	GradeCD: 5,
	GradeDD: 4,
	GradeFF: 0,
}

// Valid reports whether g belongs to the grading set.
func (g Grade) Valid() bool {
	_, ok := gradePoints[g]
	return ok
}

// Point maps the grade to its point value; unknown grades score 0.
func (g Grade) Point() int {
	return gradePoints[g]
}

// Enrollment is an approved registration, optionally graded.
type Enrollment struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	CourseCode    string           `db:"course_code" json:"course_code"`
	CreditOrAudit CreditOrAudit    `db:"credit_or_audit" json:"credit_or_audit"`
	Semester      string           `db:"semester" json:"semester"`
	Status        EnrollmentStatus `db:"status" json:"status"`
	Grade         *Grade           `db:"grade" json:"grade,omitempty"`
	IsCompleted   bool             `db:"is_completed" json:"is_completed"`
	GradedAt      *time.Time       `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail joins course information onto an enrollment.
type EnrollmentDetail struct {
	Enrollment
	CourseName string `db:"course_name" json:"course_name"`
	Credits    int    `db:"credits" json:"credits"`
}

// CompletedCourse is the performance input row: a graded credit enrollment.
type CompletedCourse struct {
	CourseCode string `db:"course_code" json:"course_code"`
	Semester   string `db:"semester" json:"semester"`
	Grade      Grade  `db:"grade" json:"grade"`
	Credits    int    `db:"credits" json:"credits"`
}

// GradeEntry is one row of a grade posting batch.
type GradeEntry struct {
	StudentID string `json:"student_id" validate:"required"`
	Grade     Grade  `json:"grade" validate:"required"`
}

// GradeBatchResult reports the outcome of a grade posting batch.
type GradeBatchResult struct {
	Graded []string              `json:"graded"`
	Failed []RegistrationFailure `json:"failed"`
}
