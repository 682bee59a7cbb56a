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

const dateLayout = "2006-01-02"

const attendanceColumns = `id, course_code, student_id, date, is_present, is_approved, created_at, updated_at`

// AttendanceRepository persists per-day attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a record. ErrDuplicate is returned when one already exists
// for the course, student and day.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, course_code, student_id, date, is_present, is_approved, created_at, updated_at)
VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8)
ON CONFLICT (course_code, student_id, date) DO NOTHING
RETURNING id`
	var id string
	err := r.db.QueryRowxContext(ctx, query, record.ID, record.CourseCode, record.StudentID, record.Date.Format(dateLayout),
		record.IsPresent, record.IsApproved, record.CreatedAt, record.UpdatedAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDuplicate
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// UpdateFlags changes the presence and/or approval flag of the record dated
// within [day, day+1). Nil flags are left unchanged. sql.ErrNoRows is
// returned when nothing matches.
func (r *AttendanceRepository) UpdateFlags(ctx context.Context, courseCode, studentID string, day time.Time, isPresent, isApproved *bool) (*models.AttendanceRecord, error) {
	query := `UPDATE attendance_records
SET is_present = COALESCE($4::boolean, is_present), is_approved = COALESCE($5::boolean, is_approved), updated_at = $6
WHERE course_code = $1 AND student_id = $2 AND date >= $3::date AND date < $7::date
RETURNING ` + attendanceColumns
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, courseCode, studentID, day.Format(dateLayout), isPresent, isApproved, time.Now().UTC(), day.AddDate(0, 0, 1).Format(dateLayout)); err != nil {
		return nil, err
	}
	return &record, nil
}

// CountApproved returns attended and missed counts over approved records.
func (r *AttendanceRepository) CountApproved(ctx context.Context, studentID, courseCode string) (int, int, error) {
	const query = `SELECT
    COUNT(*) FILTER (WHERE is_present) AS attended,
    COUNT(*) FILTER (WHERE NOT is_present) AS missed
FROM attendance_records
WHERE student_id = $1 AND course_code = $2 AND is_approved = TRUE`
	var counts struct {
		Attended int `db:"attended"`
		Missed   int `db:"missed"`
	}
	if err := r.db.GetContext(ctx, &counts, query, studentID, courseCode); err != nil {
		return 0, 0, fmt.Errorf("count attendance: %w", err)
	}
	return counts.Attended, counts.Missed, nil
}

// ListByStudentCourse returns a student's records for a course by date.
func (r *AttendanceRepository) ListByStudentCourse(ctx context.Context, studentID, courseCode string) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE student_id = $1 AND course_code = $2 ORDER BY date ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID, courseCode); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}

// ListUnapproved returns records awaiting approval, most recently created first. An empty
// courseCode lists every course.
func (r *AttendanceRepository) ListUnapproved(ctx context.Context, courseCode string) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE is_approved = FALSE`
	var args []interface{}
	if courseCode != "" {
		query += ` AND course_code = $1`
		args = append(args, courseCode)
	}
	query += ` ORDER BY created_at DESC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance queue: %w", err)
	}
	return records, nil
}
