package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type dropRequestRepository interface {
	Create(ctx context.Context, req *models.DropRequest) error
	FindByID(ctx context.Context, id string) (*models.DropRequest, error)
	List(ctx context.Context, filter models.DropRequestFilter) ([]models.DropRequest, int, error)
	DeletePendingOwned(ctx context.Context, id, studentID string) (bool, error)
	Reject(ctx context.Context, id string, remarks, reviewer *string) (*models.DropRequest, error)
	Approve(ctx context.Context, id string, remarks, reviewer *string) (*models.DropRequest, error)
}

type enrollmentFinder interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error)
}

type courseGetter interface {
	GetCourse(ctx context.Context, code string) (*models.Course, error)
}

// CreateDropRequestPayload names the course to drop.
type CreateDropRequestPayload struct {
	CourseCode string `json:"course_code" validate:"required"`
}

// ResolveDropRequestPayload carries the reviewer's decision.
type ResolveDropRequestPayload struct {
	Decision models.DropRequestStatus `json:"decision" validate:"required,oneof=APPROVED REJECTED"`
	Remarks  string                   `json:"remarks" validate:"max=1000"`
}

// DropService adjudicates drop requests.
type DropService struct {
	repo        dropRequestRepository
	enrollments enrollmentFinder
	courses     courseGetter
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewDropService constructs DropService.
func NewDropService(repo dropRequestRepository, enrollments enrollmentFinder, courses courseGetter, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DropService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DropService{repo: repo, enrollments: enrollments, courses: courses, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// CreateDropRequest files a pending drop request for an open enrollment.
func (s *DropService) CreateDropRequest(ctx context.Context, studentID string, req CreateDropRequestPayload) (*models.DropRequest, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop request payload")
	}
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, studentID, req.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.IsCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course already completed")
	}
	course, err := s.courses.GetCourse(ctx, req.CourseCode)
	if err != nil {
		return nil, err
	}

	dropRequest := &models.DropRequest{
		StudentID:  studentID,
		CourseCode: req.CourseCode,
		CourseName: course.Name,
		Semester:   enrollment.Semester,
	}
	if err := s.repo.Create(ctx, dropRequest); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "drop request already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create drop request")
	}
	s.logger.Info("drop requested", zap.String("student_id", studentID), zap.String("course_code", req.CourseCode))
	return dropRequest, nil
}

// CancelDropRequest lets the owning student withdraw a pending request.
func (s *DropService) CancelDropRequest(ctx context.Context, studentID, id string) error {
	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if existing.StudentID != studentID {
		return appErrors.Clone(appErrors.ErrForbidden, "drop request belongs to another student")
	}
	if existing.Status != models.DropRequestStatusPending {
		return appErrors.Clone(appErrors.ErrForbidden, "drop request already resolved")
	}
	deleted, err := s.repo.DeletePendingOwned(ctx, id, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel drop request")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrForbidden, "drop request already resolved")
	}
	return nil
}

// ResolveDropRequest approves or rejects a pending request. Approval removes
// the enrollment in the same transaction.
func (s *DropService) ResolveDropRequest(ctx context.Context, id string, req ResolveDropRequestPayload, actor *models.JWTClaims) (*models.DropRequest, error) {
	req.Decision = models.DropRequestStatus(strings.ToUpper(strings.TrimSpace(string(req.Decision))))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "decision must be APPROVED or REJECTED")
	}
	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != models.DropRequestStatusPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "drop request already resolved")
	}

	var remarks *string
	if trimmed := strings.TrimSpace(req.Remarks); trimmed != "" {
		remarks = &trimmed
	}
	reviewer := userIDPtr(actor)

	var resolved *models.DropRequest
	if req.Decision == models.DropRequestStatusApproved {
		resolved, err = s.repo.Approve(ctx, id, remarks, reviewer)
	} else {
		resolved, err = s.repo.Reject(ctx, id, remarks, reviewer)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotPending):
			return nil, appErrors.Clone(appErrors.ErrConflict, "drop request already resolved")
		case errors.Is(err, repository.ErrEnrollmentMissing):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve drop request")
		}
	}

	s.metrics.RecordTransition(WorkflowDrop, strings.ToLower(string(resolved.Status)))
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionDropResolve, models.AuditResourceDropRequest, id,
		map[string]string{"status": string(existing.Status)},
		map[string]string{"status": string(resolved.Status)},
	)
	s.logger.Info("drop request resolved",
		zap.String("id", id),
		zap.String("student_id", resolved.StudentID),
		zap.String("course_code", resolved.CourseCode),
		zap.String("status", string(resolved.Status)),
	)
	return resolved, nil
}

// GetDropRequest returns a request. Students may only read their own.
func (s *DropService) GetDropRequest(ctx context.Context, id string, actor *models.JWTClaims) (*models.DropRequest, error) {
	req, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == models.RoleStudent && actor.UserID != req.StudentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "drop request belongs to another student")
	}
	return req, nil
}

// ListDropRequests returns drop requests with pagination metadata.
func (s *DropService) ListDropRequests(ctx context.Context, filter models.DropRequestFilter) ([]models.DropRequest, *models.Pagination, error) {
	filter.Status = models.DropRequestStatus(strings.ToUpper(string(filter.Status)))
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drop requests")
	}
	return requests, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *DropService) find(ctx context.Context, id string) (*models.DropRequest, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "drop request id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "drop request not found")
	}
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "drop request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load drop request")
	}
	return req, nil
}
