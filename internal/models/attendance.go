package models

import "time"

// AttendanceRecord is one student's presence for one course on one day.
type AttendanceRecord struct {
	ID         string    `db:"id" json:"id"`
	CourseCode string    `db:"course_code" json:"course_code"`
	StudentID  string    `db:"student_id" json:"student_id"`
	Date       time.Time `db:"date" json:"date"`
	IsPresent  bool      `db:"is_present" json:"is_present"`
	IsApproved bool      `db:"is_approved" json:"is_approved"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// AttendanceStats summarises approved attendance for a student in a course.
type AttendanceStats struct {
	Attended              int     `json:"attended"`
	Missed                int     `json:"missed"`
	Percentage            float64 `json:"percentage"`
	RequiredMakeupClasses int     `json:"required_makeup_classes"`
}

// BulkAttendanceRow is one line of a bulk attendance upload.
type BulkAttendanceRow struct {
	RollNo string `json:"roll_no"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// BulkAttendanceRowResult reports the outcome of a single bulk row.
type BulkAttendanceRowResult struct {
	Row     int    `json:"row"`
	RollNo  string `json:"roll_no"`
	Date    string `json:"date"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BulkAttendanceResult aggregates a bulk attendance upload.
type BulkAttendanceResult struct {
	SuccessCount int                       `json:"success_count"`
	FailureCount int                       `json:"failure_count"`
	Results      []BulkAttendanceRowResult `json:"results"`
	Errors       []string                  `json:"errors"`
}

// StudentAttendanceReport combines the derived stats with the raw history.
type StudentAttendanceReport struct {
	StudentID  string             `json:"student_id"`
	CourseCode string             `json:"course_code"`
	Stats      AttendanceStats    `json:"stats"`
	Records    []AttendanceRecord `json:"records"`
}
