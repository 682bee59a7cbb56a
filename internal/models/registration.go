package models

import "time"

// CreditOrAudit describes how an enrollment counts towards the degree.
type CreditOrAudit string

const (
	CreditOrAuditCredit CreditOrAudit = "CREDIT"
	CreditOrAuditAudit  CreditOrAudit = "AUDIT"
)

// Valid reports whether the value is a known option.
func (c CreditOrAudit) Valid() bool {
	return c == CreditOrAuditCredit || c == CreditOrAuditAudit
}

// RegistrationRequest is a pending ask to enroll in a course.
type RegistrationRequest struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	CourseCode    string        `db:"course_code" json:"course_code"`
	CreditOrAudit CreditOrAudit `db:"credit_or_audit" json:"credit_or_audit"`
	Semester      string        `db:"semester" json:"semester"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// RegistrationFailure explains why one key of a batch decision failed.
type RegistrationFailure struct {
	StudentID string `json:"student_id"`
	Reason    string `json:"reason"`
}

// RegistrationBatchResult aggregates the per-key outcomes of a batch decision.
type RegistrationBatchResult struct {
	Approved []string              `json:"approved"`
	Rejected []string              `json:"rejected,omitempty"`
	Skipped  []string              `json:"skipped"`
	Failed   []RegistrationFailure `json:"failed"`
}
