package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/pkg/database"
)

const enrollmentColumns = `id, student_id, course_code, credit_or_audit, semester, status, grade, is_completed, graded_at, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByStudentAndCourse returns the enrollment for a pair or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_code = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseCode); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Exists reports whether the pair is enrolled.
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, courseCode string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_code = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseCode); err != nil {
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return exists, nil
}

// ListByStudent returns a student's enrollments with course details.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.student_id, e.course_code, e.credit_or_audit, e.semester, e.status, e.grade,
        e.is_completed, e.graded_at, e.created_at, e.updated_at, c.name AS course_name, c.credits
        FROM enrollments e JOIN courses c ON c.code = e.course_code
        WHERE e.student_id = $1 ORDER BY e.semester ASC, e.course_code ASC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// ApproveRequest turns the pending request for a pair into an enrollment in
// one transaction. It returns sql.ErrNoRows when no request exists,
// ErrIntakeFull when the course is at capacity and ErrAlreadyGraded when a
// completed enrollment already exists for the pair.
func (r *EnrollmentRepository) ApproveRequest(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error) {
	var approved models.Enrollment
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var maxIntake int
		if err := tx.GetContext(ctx, &maxIntake, `SELECT max_intake FROM courses WHERE code = $1 FOR UPDATE`, courseCode); err != nil {
			return err
		}

		var req models.RegistrationRequest
		const claim = `DELETE FROM registration_requests WHERE student_id = $1 AND course_code = $2
RETURNING id, student_id, course_code, credit_or_audit, semester, created_at`
		if err := tx.GetContext(ctx, &req, claim, studentID, courseCode); err != nil {
			return err
		}

		if maxIntake > 0 {
			var enrolled int
			const count = `SELECT COUNT(*) FROM enrollments WHERE course_code = $1 AND student_id <> $2`
			if err := tx.GetContext(ctx, &enrolled, count, courseCode, studentID); err != nil {
				return fmt.Errorf("count enrollments: %w", err)
			}
			if enrolled >= maxIntake {
				return ErrIntakeFull
			}
		}

		now := time.Now().UTC()
		upsert := `INSERT INTO enrollments (id, student_id, course_code, credit_or_audit, semester, status, is_completed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, $7)
ON CONFLICT (student_id, course_code)
DO UPDATE SET credit_or_audit = EXCLUDED.credit_or_audit, semester = EXCLUDED.semester,
              status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
WHERE enrollments.is_completed = FALSE
RETURNING ` + enrollmentColumns
		err := tx.GetContext(ctx, &approved, upsert, uuid.NewString(), req.StudentID, req.CourseCode, req.CreditOrAudit, req.Semester, models.EnrollmentStatusApproved, now)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlreadyGraded
		}
		if err != nil {
			return fmt.Errorf("upsert enrollment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &approved, nil
}

// PostGrade completes an enrollment with a grade. It returns sql.ErrNoRows
// when the pair is not enrolled and ErrAlreadyGraded when a grade exists.
func (r *EnrollmentRepository) PostGrade(ctx context.Context, studentID, courseCode string, grade models.Grade) (*models.Enrollment, error) {
	now := time.Now().UTC()
	query := `UPDATE enrollments SET grade = $3, is_completed = TRUE, graded_at = $4, updated_at = $4
WHERE student_id = $1 AND course_code = $2 AND is_completed = FALSE
RETURNING ` + enrollmentColumns
	var enrollment models.Enrollment
	err := r.db.GetContext(ctx, &enrollment, query, studentID, courseCode, grade, now)
	if err == nil {
		return &enrollment, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post grade: %w", err)
	}
	exists, existsErr := r.Exists(ctx, studentID, courseCode)
	if existsErr != nil {
		return nil, existsErr
	}
	if exists {
		return nil, ErrAlreadyGraded
	}
	return nil, sql.ErrNoRows
}

// ListCompletedCredit returns graded credit enrollments with course credits.
func (r *EnrollmentRepository) ListCompletedCredit(ctx context.Context, studentID string) ([]models.CompletedCourse, error) {
	const query = `SELECT e.course_code, e.semester, e.grade, c.credits
FROM enrollments e JOIN courses c ON c.code = e.course_code
WHERE e.student_id = $1 AND e.is_completed = TRUE AND e.credit_or_audit = $2 AND e.grade IS NOT NULL`
	var rows []models.CompletedCourse
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.CreditOrAuditCredit); err != nil {
		return nil, fmt.Errorf("list completed courses: %w", err)
	}
	return rows, nil
}
