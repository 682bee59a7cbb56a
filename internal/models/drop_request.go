package models

import "time"

// DropRequestStatus enumerates drop request states.
type DropRequestStatus string

const (
	DropRequestStatusPending  DropRequestStatus = "PENDING"
	DropRequestStatusApproved DropRequestStatus = "APPROVED"
	DropRequestStatusRejected DropRequestStatus = "REJECTED"
)

// DropRequest asks to withdraw from an enrolled course.
type DropRequest struct {
	ID          string            `db:"id" json:"id"`
	StudentID   string            `db:"student_id" json:"student_id"`
	CourseCode  string            `db:"course_code" json:"course_code"`
	CourseName  string            `db:"course_name" json:"course_name"`
	Semester    string            `db:"semester" json:"semester"`
	Status      DropRequestStatus `db:"status" json:"status"`
	Remarks     *string           `db:"remarks" json:"remarks,omitempty"`
	ReviewedBy  *string           `db:"reviewed_by" json:"reviewed_by,omitempty"`
	RequestedAt time.Time         `db:"requested_at" json:"requested_at"`
	ReviewedAt  *time.Time        `db:"reviewed_at" json:"reviewed_at,omitempty"`
}

// DropRequestFilter narrows drop request listings.
type DropRequestFilter struct {
	StudentID  string
	CourseCode string
	Status     DropRequestStatus
	Page       int
	PageSize   int
}
