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
)

// RegistrationRepository persists pending registration requests.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create inserts a request unless one already exists for the pair, in which
// case ErrDuplicate is returned.
func (r *RegistrationRepository) Create(ctx context.Context, req *models.RegistrationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registration_requests (id, student_id, course_code, credit_or_audit, semester, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (student_id, course_code) DO NOTHING
RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query, req.ID, req.StudentID, req.CourseCode, req.CreditOrAudit, req.Semester, req.CreatedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDuplicate
		}
		return fmt.Errorf("create registration request: %w", err)
	}
	return nil
}

// ListByCourse returns pending requests for a course, oldest first.
func (r *RegistrationRepository) ListByCourse(ctx context.Context, courseCode string) ([]models.RegistrationRequest, error) {
	const query = `SELECT id, student_id, course_code, credit_or_audit, semester, created_at
FROM registration_requests WHERE course_code = $1 ORDER BY created_at ASC`
	var requests []models.RegistrationRequest
	if err := r.db.SelectContext(ctx, &requests, query, courseCode); err != nil {
		return nil, fmt.Errorf("list registration requests: %w", err)
	}
	return requests, nil
}

// Delete removes the request for a pair and reports whether one existed.
func (r *RegistrationRepository) Delete(ctx context.Context, studentID, courseCode string) (bool, error) {
	const query = `DELETE FROM registration_requests WHERE student_id = $1 AND course_code = $2`
	res, err := r.db.ExecContext(ctx, query, studentID, courseCode)
	if err != nil {
		return false, fmt.Errorf("delete registration request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete registration request rows affected: %w", err)
	}
	return affected > 0, nil
}
