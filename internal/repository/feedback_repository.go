package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

// FeedbackRepository persists feedback entries.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Exists reports whether an entry exists for the triple.
func (r *FeedbackRepository) Exists(ctx context.Context, studentID, facultyID, courseCode string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM feedback_entries WHERE student_id = $1 AND faculty_id = $2 AND course_code = $3)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, facultyID, courseCode); err != nil {
		return false, fmt.Errorf("check feedback entry: %w", err)
	}
	return exists, nil
}

// Upsert writes the entry for its triple, replacing ratings and comments if
// a row is already present.
func (r *FeedbackRepository) Upsert(ctx context.Context, entry *models.FeedbackEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.Active = true
	const query = `INSERT INTO feedback_entries (id, student_id, faculty_id, course_code, ratings, comments, active, created_at, updated_at)
VALUES (:id, :student_id, :faculty_id, :course_code, :ratings, :comments, :active, :created_at, :updated_at)
ON CONFLICT (student_id, faculty_id, course_code)
DO UPDATE SET ratings = EXCLUDED.ratings, comments = EXCLUDED.comments, active = TRUE, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert feedback entry: %w", err)
	}
	return nil
}

// ListActive returns active entries for a faculty/course pair.
func (r *FeedbackRepository) ListActive(ctx context.Context, facultyID, courseCode string) ([]models.FeedbackEntry, error) {
	const query = `SELECT id, student_id, faculty_id, course_code, ratings, comments, active, created_at, updated_at
FROM feedback_entries WHERE faculty_id = $1 AND course_code = $2 AND active = TRUE ORDER BY created_at ASC`
	var entries []models.FeedbackEntry
	if err := r.db.SelectContext(ctx, &entries, query, facultyID, courseCode); err != nil {
		return nil, fmt.Errorf("list feedback entries: %w", err)
	}
	return entries, nil
}
