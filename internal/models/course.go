package models

import "time"

// Course is a catalog offering students register for.
type Course struct {
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	Department string    `db:"department" json:"department"`
	Credits    int       `db:"credits" json:"credits"`
	MaxIntake  int       `db:"max_intake" json:"max_intake"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures catalog listing criteria.
type CourseFilter struct {
	Department string
	Search     string
	Page       int
	PageSize   int
}

// FacultyCourse links a faculty member to a course they teach.
type FacultyCourse struct {
	FacultyID  string    `db:"faculty_id" json:"faculty_id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	CourseName string    `db:"course_name" json:"course_name,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
