package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
)

func TestCourseRepositoryFindByCodeMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT code, name").WithArgs("XX000").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "XX000")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT code, name, department, credits, max_intake, created_at, updated_at").
		WithArgs("CSE", "%intro%").
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "department", "credits", "max_intake", "created_at", "updated_at"}).
			AddRow("CS101", "Intro", "CSE", 6, 60, now, now))
	mock.ExpectQuery("SELECT COUNT").WithArgs("CSE", "%intro%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	courses, total, err := repo.List(context.Background(), models.CourseFilter{Department: "CSE", Search: "intro"})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDeleteReferenced(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("DELETE FROM courses").WithArgs("CS101").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.Delete(context.Background(), "CS101")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestCourseRepositoryAssignFacultyIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO faculty_courses").WithArgs("F1", "CS101", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.AssignFaculty(context.Background(), "F1", "CS101"))
}

func TestConfigurationRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewConfigurationRepository(db)
	mock.ExpectExec("INSERT INTO configurations").
		WithArgs(models.ConfigKeyFeedbackEnabled, "false", "BOOLEAN", sqlmock.AnyArg(), "admin", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	cfg := &models.Configuration{
		Key:       models.ConfigKeyFeedbackEnabled,
		Value:     "false",
		Type:      models.ConfigurationTypeBoolean,
		UpdatedBy: strPtr("admin"),
	}
	require.NoError(t, repo.Upsert(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewAuditRepository(db)
	mock.ExpectExec("INSERT INTO audit_logs").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionGradePost, Resource: models.AuditResourceEnrollment}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}
