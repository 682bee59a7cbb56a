package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

// CourseRepository persists catalog courses and faculty offerings.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByCode returns a course or sql.ErrNoRows.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	const query = `SELECT code, name, department, credits, max_intake, created_at, updated_at FROM courses WHERE code = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses filtered by department and search term.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var conditions []string
	var args []interface{}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	pagination := models.NewPagination(filter.Page, filter.PageSize, 0)
	offset := (pagination.Page - 1) * pagination.PageSize

	query := fmt.Sprintf(`SELECT code, name, department, credits, max_intake, created_at, updated_at
FROM courses%s ORDER BY code ASC LIMIT %d OFFSET %d`, clause, pagination.PageSize, offset)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM courses"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// Upsert creates or updates a course keyed by code.
func (r *CourseRepository) Upsert(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (code, name, department, credits, max_intake, created_at, updated_at)
VALUES (:code, :name, :department, :credits, :max_intake, :created_at, :updated_at)
ON CONFLICT (code)
DO UPDATE SET name = EXCLUDED.name, department = EXCLUDED.department, credits = EXCLUDED.credits,
              max_intake = EXCLUDED.max_intake, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}

// Delete removes a course unless an enrollment still references it. It
// reports whether a row was deleted.
func (r *CourseRepository) Delete(ctx context.Context, code string) (bool, error) {
	const query = `DELETE FROM courses WHERE code = $1
AND NOT EXISTS (SELECT 1 FROM enrollments WHERE course_code = $1)`
	res, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return false, fmt.Errorf("delete course: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete course rows affected: %w", err)
	}
	return affected > 0, nil
}

// AssignFaculty links a faculty member to a course. Existing links are kept.
func (r *CourseRepository) AssignFaculty(ctx context.Context, facultyID, courseCode string) error {
	const query = `INSERT INTO faculty_courses (faculty_id, course_code, created_at) VALUES ($1, $2, $3)
ON CONFLICT (faculty_id, course_code) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, facultyID, courseCode, time.Now().UTC()); err != nil {
		return fmt.Errorf("assign faculty: %w", err)
	}
	return nil
}

// ListByFaculty returns the offerings taught by a faculty member.
func (r *CourseRepository) ListByFaculty(ctx context.Context, facultyID string) ([]models.FacultyCourse, error) {
	const query = `SELECT fc.faculty_id, fc.course_code, c.name AS course_name, fc.created_at
FROM faculty_courses fc JOIN courses c ON c.code = fc.course_code
WHERE fc.faculty_id = $1 ORDER BY fc.course_code ASC`
	var offerings []models.FacultyCourse
	if err := r.db.SelectContext(ctx, &offerings, query, facultyID); err != nil {
		return nil, fmt.Errorf("list faculty courses: %w", err)
	}
	return offerings, nil
}

// OfferingExists reports whether the faculty member teaches the course.
func (r *CourseRepository) OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM faculty_courses WHERE faculty_id = $1 AND course_code = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, facultyID, courseCode); err != nil {
		return false, fmt.Errorf("check faculty course: %w", err)
	}
	return exists, nil
}
