package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type registrationRepository interface {
	Create(ctx context.Context, req *models.RegistrationRequest) error
	ListByCourse(ctx context.Context, courseCode string) ([]models.RegistrationRequest, error)
	Delete(ctx context.Context, studentID, courseCode string) (bool, error)
}

type enrollmentRepository interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error)
	Exists(ctx context.Context, studentID, courseCode string) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	ApproveRequest(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error)
	PostGrade(ctx context.Context, studentID, courseCode string, grade models.Grade) (*models.Enrollment, error)
}

type catalogReader interface {
	GetCourse(ctx context.Context, code string) (*models.Course, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error)
}

// RegistrationRequestPayload describes a student's registration ask.
type RegistrationRequestPayload struct {
	CourseCode    string               `json:"course_code" validate:"required"`
	CreditOrAudit models.CreditOrAudit `json:"credit_or_audit" validate:"required,oneof=CREDIT AUDIT"`
	Semester      string               `json:"semester" validate:"required,max=32"`
}

// RegistrationDecisionPayload lists the students a batch decision applies to.
type RegistrationDecisionPayload struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
}

// PostGradesPayload carries a grade posting batch.
type PostGradesPayload struct {
	Grades []models.GradeEntry `json:"grades" validate:"required,min=1,dive"`
}

// EnrollmentService moves students from requested to enrolled to graded.
type EnrollmentService struct {
	requests    registrationRepository
	enrollments enrollmentRepository
	catalog     catalogReader
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(requests registrationRepository, enrollments enrollmentRepository, catalog catalogReader, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{requests: requests, enrollments: enrollments, catalog: catalog, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// RequestRegistration files a pending registration for the student.
func (s *EnrollmentService) RequestRegistration(ctx context.Context, studentID string, req RegistrationRequestPayload) (*models.RegistrationRequest, error) {
	req.CreditOrAudit = models.CreditOrAudit(strings.ToUpper(strings.TrimSpace(string(req.CreditOrAudit))))
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if _, err := s.catalog.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetCourse(ctx, req.CourseCode); err != nil {
		return nil, err
	}
	enrolled, err := s.enrollments.Exists(ctx, studentID, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if enrolled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already enrolled in course")
	}

	request := &models.RegistrationRequest{
		StudentID:     studentID,
		CourseCode:    req.CourseCode,
		CreditOrAudit: req.CreditOrAudit,
		Semester:      req.Semester,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "registration request already pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration request")
	}
	s.logger.Info("registration requested", zap.String("student_id", studentID), zap.String("course_code", req.CourseCode))
	return request, nil
}

// CancelRegistration withdraws the student's pending request for a course.
func (s *EnrollmentService) CancelRegistration(ctx context.Context, studentID, courseCode string) error {
	if studentID == "" || courseCode == "" {
		return appErrors.Clone(appErrors.ErrValidation, "student id and course code are required")
	}
	deleted, err := s.requests.Delete(ctx, studentID, courseCode)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration request")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "registration request not found")
	}
	return nil
}

// ListPendingRegistrations returns the pending requests of a course.
func (s *EnrollmentService) ListPendingRegistrations(ctx context.Context, courseCode string) ([]models.RegistrationRequest, error) {
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, err
	}
	requests, err := s.requests.ListByCourse(ctx, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registration requests")
	}
	return requests, nil
}

// ApproveRegistrations approves each student's pending request for the
// course. Keys are processed independently; a failing key never aborts the
// rest and a key without a pending request is skipped.
func (s *EnrollmentService) ApproveRegistrations(ctx context.Context, courseCode string, req RegistrationDecisionPayload, actor *models.JWTClaims) (*models.RegistrationBatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, err
	}

	result := newRegistrationBatchResult()
	for _, studentID := range req.StudentIDs {
		enrollment, err := s.enrollments.ApproveRequest(ctx, studentID, courseCode)
		switch {
		case err == nil:
			result.Approved = append(result.Approved, studentID)
			s.metrics.RecordTransition(WorkflowRegistration, "approved")
			emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionRegistrationApprove, models.AuditResourceEnrollment, enrollment.ID, nil, enrollment)
		case errors.Is(err, sql.ErrNoRows):
			result.Skipped = append(result.Skipped, studentID)
		case errors.Is(err, repository.ErrIntakeFull):
			result.Failed = append(result.Failed, models.RegistrationFailure{StudentID: studentID, Reason: "course intake is full"})
		case errors.Is(err, repository.ErrAlreadyGraded):
			result.Failed = append(result.Failed, models.RegistrationFailure{StudentID: studentID, Reason: "enrollment already completed"})
		default:
			s.logger.Warn("registration approval failed", zap.String("student_id", studentID), zap.String("course_code", courseCode), zap.Error(err))
			result.Failed = append(result.Failed, models.RegistrationFailure{StudentID: studentID, Reason: "internal error"})
		}
	}
	s.logger.Info("registrations approved",
		zap.String("course_code", courseCode),
		zap.Int("approved", len(result.Approved)),
		zap.Int("skipped", len(result.Skipped)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// RejectRegistrations discards the listed students' pending requests.
func (s *EnrollmentService) RejectRegistrations(ctx context.Context, courseCode string, req RegistrationDecisionPayload, actor *models.JWTClaims) (*models.RegistrationBatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rejection payload")
	}
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, err
	}

	result := newRegistrationBatchResult()
	for _, studentID := range req.StudentIDs {
		deleted, err := s.requests.Delete(ctx, studentID, courseCode)
		switch {
		case err != nil:
			s.logger.Warn("registration rejection failed", zap.String("student_id", studentID), zap.String("course_code", courseCode), zap.Error(err))
			result.Failed = append(result.Failed, models.RegistrationFailure{StudentID: studentID, Reason: "internal error"})
		case !deleted:
			result.Skipped = append(result.Skipped, studentID)
		default:
			result.Rejected = append(result.Rejected, studentID)
			s.metrics.RecordTransition(WorkflowRegistration, "rejected")
			emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionRegistrationReject, models.AuditResourceEnrollment, studentID+":"+courseCode, nil, nil)
		}
	}
	return result, nil
}

// ListStudentEnrollments returns a student's enrollments.
func (s *EnrollmentService) ListStudentEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if _, err := s.catalog.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, nil
}

// PostGrade completes an enrollment with a grade. Grades are final.
func (s *EnrollmentService) PostGrade(ctx context.Context, courseCode, studentID string, grade models.Grade, actor *models.JWTClaims) (*models.Enrollment, error) {
	grade = models.Grade(strings.ToUpper(strings.TrimSpace(string(grade))))
	if courseCode == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and course code are required")
	}
	if !grade.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid grade")
	}
	enrollment, err := s.enrollments.PostGrade(ctx, studentID, courseCode, grade)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		case errors.Is(err, repository.ErrAlreadyGraded):
			return nil, appErrors.Clone(appErrors.ErrConflict, "grade already posted")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to post grade")
		}
	}
	s.metrics.RecordTransition(WorkflowGrading, "graded")
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionGradePost, models.AuditResourceEnrollment, enrollment.ID, nil, map[string]string{
		"student_id":  studentID,
		"course_code": courseCode,
		"grade":       string(grade),
	})
	s.logger.Info("grade posted", zap.String("student_id", studentID), zap.String("course_code", courseCode), zap.String("grade", string(grade)))
	return enrollment, nil
}

// PostGrades posts each entry independently and reports per-entry outcomes.
// Faculty may only grade courses they teach.
func (s *EnrollmentService) PostGrades(ctx context.Context, courseCode string, req PostGradesPayload, actor *models.JWTClaims) (*models.GradeBatchResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grades payload")
	}
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, err
	}
	if err := ensureTeaches(ctx, s.catalog, actor, courseCode); err != nil {
		return nil, err
	}

	result := &models.GradeBatchResult{Graded: []string{}, Failed: []models.RegistrationFailure{}}
	for _, entry := range req.Grades {
		if _, err := s.PostGrade(ctx, courseCode, entry.StudentID, entry.Grade, actor); err != nil {
			result.Failed = append(result.Failed, models.RegistrationFailure{StudentID: entry.StudentID, Reason: appErrors.FromError(err).Message})
			continue
		}
		result.Graded = append(result.Graded, entry.StudentID)
	}
	return result, nil
}

func newRegistrationBatchResult() *models.RegistrationBatchResult {
	return &models.RegistrationBatchResult{
		Approved: []string{},
		Rejected: []string{},
		Skipped:  []string{},
		Failed:   []models.RegistrationFailure{},
	}
}

type offeringChecker interface {
	OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error)
}

// ensureTeaches restricts faculty actors to their own offerings.
func ensureTeaches(ctx context.Context, catalog offeringChecker, actor *models.JWTClaims, courseCode string) error {
	if actor == nil || actor.Role != models.RoleFaculty {
		return nil
	}
	teaches, err := catalog.OfferingExists(ctx, actor.UserID, courseCode)
	if err != nil {
		return err
	}
	if !teaches {
		return appErrors.Clone(appErrors.ErrForbidden, "faculty does not teach course")
	}
	return nil
}
