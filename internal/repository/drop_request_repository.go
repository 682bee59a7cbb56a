package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/pkg/database"
)

const dropRequestColumns = `id, student_id, course_code, course_name, semester, status, remarks, reviewed_by, requested_at, reviewed_at`

// DropRequestRepository persists drop requests.
type DropRequestRepository struct {
	db *sqlx.DB
}

// NewDropRequestRepository constructs the repository.
func NewDropRequestRepository(db *sqlx.DB) *DropRequestRepository {
	return &DropRequestRepository{db: db}
}

// Create inserts a pending request. ErrDuplicate is returned when the pair
// already has a pending request.
func (r *DropRequestRepository) Create(ctx context.Context, req *models.DropRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	req.Status = models.DropRequestStatusPending
	const query = `INSERT INTO drop_requests (id, student_id, course_code, course_name, semester, status, requested_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (student_id, course_code) WHERE status = 'PENDING' DO NOTHING
RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query, req.ID, req.StudentID, req.CourseCode, req.CourseName, req.Semester, req.Status, req.RequestedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDuplicate
		}
		return fmt.Errorf("create drop request: %w", err)
	}
	return nil
}

// FindByID returns a drop request or sql.ErrNoRows.
func (r *DropRequestRepository) FindByID(ctx context.Context, id string) (*models.DropRequest, error) {
	query := `SELECT ` + dropRequestColumns + ` FROM drop_requests WHERE id = $1`
	var req models.DropRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns drop requests newest first.
func (r *DropRequestRepository) List(ctx context.Context, filter models.DropRequestFilter) ([]models.DropRequest, int, error) {
	var conditions []string
	var args []interface{}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseCode != "" {
		conditions = append(conditions, fmt.Sprintf("course_code = $%d", len(args)+1))
		args = append(args, filter.CourseCode)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	pagination := models.NewPagination(filter.Page, filter.PageSize, 0)
	offset := (pagination.Page - 1) * pagination.PageSize

	query := fmt.Sprintf(`SELECT %s FROM drop_requests%s ORDER BY requested_at DESC LIMIT %d OFFSET %d`,
		dropRequestColumns, clause, pagination.PageSize, offset)
	var requests []models.DropRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list drop requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM drop_requests"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count drop requests: %w", err)
	}
	return requests, total, nil
}

// DeletePendingOwned removes a pending request owned by the student and
// reports whether a row was deleted.
func (r *DropRequestRepository) DeletePendingOwned(ctx context.Context, id, studentID string) (bool, error) {
	const query = `DELETE FROM drop_requests WHERE id = $1 AND student_id = $2 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, studentID)
	if err != nil {
		return false, fmt.Errorf("delete drop request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete drop request rows affected: %w", err)
	}
	return affected > 0, nil
}

// Reject resolves a pending request as rejected. ErrNotPending is returned
// when the request was already resolved.
func (r *DropRequestRepository) Reject(ctx context.Context, id string, remarks, reviewer *string) (*models.DropRequest, error) {
	var resolved models.DropRequest
	err := r.db.GetContext(ctx, &resolved, resolveQuery, id, models.DropRequestStatusRejected, remarks, reviewer, time.Now().UTC())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotPending
		}
		return nil, fmt.Errorf("reject drop request: %w", err)
	}
	return &resolved, nil
}

// Approve resolves a pending request and deletes the enrollment in one
// transaction. ErrNotPending is returned when the request was already
// resolved and ErrEnrollmentMissing when no open enrollment could be removed;
// both leave the request untouched.
func (r *DropRequestRepository) Approve(ctx context.Context, id string, remarks, reviewer *string) (*models.DropRequest, error) {
	var resolved models.DropRequest
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &resolved, resolveQuery, id, models.DropRequestStatusApproved, remarks, reviewer, time.Now().UTC()); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotPending
			}
			return fmt.Errorf("approve drop request: %w", err)
		}
		const drop = `DELETE FROM enrollments WHERE student_id = $1 AND course_code = $2 AND is_completed = FALSE`
		res, err := tx.ExecContext(ctx, drop, resolved.StudentID, resolved.CourseCode)
		if err != nil {
			return fmt.Errorf("delete enrollment: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete enrollment rows affected: %w", err)
		}
		if affected == 0 {
			return ErrEnrollmentMissing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resolved, nil
}

const resolveQuery = `UPDATE drop_requests SET status = $2, remarks = $3, reviewed_by = $4, reviewed_at = $5
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + dropRequestColumns
