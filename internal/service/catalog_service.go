package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type courseRepository interface {
	FindByCode(ctx context.Context, code string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Upsert(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, code string) (bool, error)
	AssignFaculty(ctx context.Context, facultyID, courseCode string) error
	ListByFaculty(ctx context.Context, facultyID string) ([]models.FacultyCourse, error)
	OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

// UpsertCourseRequest is the administrative course payload.
type UpsertCourseRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Department string `json:"department" validate:"max=128"`
	Credits    int    `json:"credits" validate:"gte=0"`
	MaxIntake  int    `json:"max_intake" validate:"gte=0"`
}

// AssignFacultyRequest links a faculty member to a course.
type AssignFacultyRequest struct {
	FacultyID string `json:"faculty_id" validate:"required"`
}

// CatalogService answers course, student and faculty lookups for the
// workflows and exposes catalog administration.
type CatalogService struct {
	courses   courseRepository
	students  studentReader
	faculty   facultyReader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCatalogService constructs CatalogService.
func NewCatalogService(courses courseRepository, students studentReader, faculty facultyReader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{courses: courses, students: students, faculty: faculty, audit: audit, validator: validate, logger: logger}
}

// GetCourse returns a course by code.
func (s *CatalogService) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	course, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// GetStudent returns a student by roll number.
func (s *CatalogService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// GetFaculty returns a faculty member by id.
func (s *CatalogService) GetFaculty(ctx context.Context, id string) (*models.Faculty, error) {
	faculty, err := s.faculty.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	return faculty, nil
}

// ListCourses returns the catalog with pagination metadata.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// UpsertCourse creates or edits a course.
func (s *CatalogService) UpsertCourse(ctx context.Context, code string, req UpsertCourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Var(code, "required,alphanum,max=32"); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course code")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{Code: code, Name: req.Name, Department: req.Department, Credits: req.Credits, MaxIntake: req.MaxIntake}
	if err := s.courses.Upsert(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save course")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionCourseUpsert, models.AuditResourceCourse, code, nil, course)
	return course, nil
}

// DeleteCourse removes a course that no enrollment references.
func (s *CatalogService) DeleteCourse(ctx context.Context, code string, actor *models.JWTClaims) error {
	if _, err := s.GetCourse(ctx, code); err != nil {
		return err
	}
	deleted, err := s.courses.Delete(ctx, code)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrConflict, "course has enrollments")
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionCourseDelete, models.AuditResourceCourse, code, nil, nil)
	return nil
}

// AssignFaculty creates the faculty-course offering. Repeating it is a no-op.
func (s *CatalogService) AssignFaculty(ctx context.Context, courseCode string, req AssignFacultyRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid faculty payload")
	}
	if _, err := s.GetCourse(ctx, courseCode); err != nil {
		return err
	}
	if _, err := s.GetFaculty(ctx, req.FacultyID); err != nil {
		return err
	}
	if err := s.courses.AssignFaculty(ctx, req.FacultyID, courseCode); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign faculty")
	}
	return nil
}

// ListFacultyCourses returns the offerings of a faculty member.
func (s *CatalogService) ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourse, error) {
	if _, err := s.GetFaculty(ctx, facultyID); err != nil {
		return nil, err
	}
	offerings, err := s.courses.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list faculty courses")
	}
	return offerings, nil
}

// OfferingExists reports whether the faculty member teaches the course.
func (s *CatalogService) OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error) {
	exists, err := s.courses.OfferingExists(ctx, facultyID, courseCode)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check faculty course")
	}
	return exists, nil
}
