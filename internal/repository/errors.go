package repository

import "errors"

var (
	// ErrDuplicate is returned when a conditional insert lost to an existing row.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotPending is returned when a transition targets a request that is no longer pending.
	ErrNotPending = errors.New("request is no longer pending")
	// ErrIntakeFull is returned when approving would exceed a course's max intake.
	ErrIntakeFull = errors.New("course intake is full")
	// ErrAlreadyGraded is returned when a completed enrollment is graded again.
	ErrAlreadyGraded = errors.New("enrollment already graded")
	// ErrEnrollmentMissing is returned when a transition expected an enrollment that does not exist.
	ErrEnrollmentMissing = errors.New("enrollment not found")
)
