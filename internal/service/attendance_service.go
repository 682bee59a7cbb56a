package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

const attendanceDateLayout = "2006-01-02"

type attendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	UpdateFlags(ctx context.Context, courseCode, studentID string, day time.Time, isPresent, isApproved *bool) (*models.AttendanceRecord, error)
	CountApproved(ctx context.Context, studentID, courseCode string) (int, int, error)
	ListByStudentCourse(ctx context.Context, studentID, courseCode string) ([]models.AttendanceRecord, error)
	ListUnapproved(ctx context.Context, courseCode string) ([]models.AttendanceRecord, error)
}

type enrollmentChecker interface {
	Exists(ctx context.Context, studentID, courseCode string) (bool, error)
}

// RecordAttendancePayload marks one student for one day.
type RecordAttendancePayload struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
	IsPresent *bool  `json:"is_present" validate:"required"`
}

// BulkAttendancePayload is a bulk upload for one course.
type BulkAttendancePayload struct {
	Rows []models.BulkAttendanceRow `json:"rows"`
}

// AttendanceKeyPayload identifies a record by student and day.
type AttendanceKeyPayload struct {
	StudentID string `json:"student_id" validate:"required"`
	Date      string `json:"date" validate:"required"`
}

// ModifyAttendancePayload toggles either flag of a record.
type ModifyAttendancePayload struct {
	StudentID  string `json:"student_id" validate:"required"`
	Date       string `json:"date" validate:"required"`
	IsPresent  *bool  `json:"is_present"`
	IsApproved *bool  `json:"is_approved"`
}

// AttendanceService implements mark-then-approve attendance.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments enrollmentChecker
	catalog     catalogReader
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService constructs AttendanceService.
func NewAttendanceService(repo attendanceRepository, enrollments enrollmentChecker, catalog catalogReader, audit auditLogger, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, enrollments: enrollments, catalog: catalog, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// RecordAttendance creates an unapproved record for an enrolled student.
func (s *AttendanceService) RecordAttendance(ctx context.Context, courseCode string, req RecordAttendancePayload, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	day, err := parseDay(req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, err
	}
	if err := ensureTeaches(ctx, s.catalog, actor, courseCode); err != nil {
		return nil, err
	}
	return s.record(ctx, courseCode, req.StudentID, day, *req.IsPresent)
}

// BulkRecordAttendance records each row independently. It never fails as a
// whole; every row gets a result entry.
func (s *AttendanceService) BulkRecordAttendance(ctx context.Context, courseCode string, req BulkAttendancePayload, actor *models.JWTClaims) (*models.BulkAttendanceResult, error) {
	result := &models.BulkAttendanceResult{
		Results: make([]models.BulkAttendanceRowResult, 0, len(req.Rows)),
		Errors:  []string{},
	}

	var courseErr error
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		courseErr = err
	} else if err := ensureTeaches(ctx, s.catalog, actor, courseCode); err != nil {
		courseErr = err
	}

	for i, row := range req.Rows {
		rowNumber := i + 1
		rowResult := models.BulkAttendanceRowResult{Row: rowNumber, RollNo: row.RollNo, Date: row.Date}
		err := courseErr
		if err == nil {
			err = s.recordRow(ctx, courseCode, row)
		}
		if err != nil {
			message := appErrors.FromError(err).Message
			rowResult.Error = message
			result.FailureCount++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d (%s): %s", rowNumber, row.RollNo, message))
		} else {
			rowResult.Success = true
			result.SuccessCount++
		}
		result.Results = append(result.Results, rowResult)
	}

	s.logger.Info("bulk attendance processed",
		zap.String("course_code", courseCode),
		zap.Int("success", result.SuccessCount),
		zap.Int("failure", result.FailureCount),
	)
	return result, nil
}

func (s *AttendanceService) recordRow(ctx context.Context, courseCode string, row models.BulkAttendanceRow) error {
	rollNo := strings.TrimSpace(row.RollNo)
	if rollNo == "" {
		return appErrors.Clone(appErrors.ErrValidation, "roll number is required")
	}
	day, err := parseDay(strings.TrimSpace(row.Date))
	if err != nil {
		return err
	}
	isPresent := strings.EqualFold(strings.TrimSpace(row.Status), "present")
	_, err = s.record(ctx, courseCode, rollNo, day, isPresent)
	return err
}

func (s *AttendanceService) record(ctx context.Context, courseCode, studentID string, day time.Time, isPresent bool) (*models.AttendanceRecord, error) {
	if studentID == "" || courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and course code are required")
	}
	enrolled, err := s.enrollments.Exists(ctx, studentID, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in course")
	}
	record := &models.AttendanceRecord{
		CourseCode: courseCode,
		StudentID:  studentID,
		Date:       day,
		IsPresent:  isPresent,
		IsApproved: false,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "attendance already recorded for date")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.metrics.RecordTransition(WorkflowAttendance, "recorded")
	return record, nil
}

// ApproveAttendance marks the record for the given day approved.
func (s *AttendanceService) ApproveAttendance(ctx context.Context, courseCode string, req AttendanceKeyPayload, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	approved := true
	record, err := s.update(ctx, courseCode, req.StudentID, req.Date, nil, &approved)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordTransition(WorkflowAttendance, "approved")
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionAttendanceApprove, models.AuditResourceAttendance, record.ID, nil, record)
	return record, nil
}

// ModifyAttendance toggles the presence and/or approval flag of a record.
func (s *AttendanceService) ModifyAttendance(ctx context.Context, courseCode string, req ModifyAttendancePayload, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if req.IsPresent == nil && req.IsApproved == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to modify")
	}
	record, err := s.update(ctx, courseCode, req.StudentID, req.Date, req.IsPresent, req.IsApproved)
	if err != nil {
		return nil, err
	}
	emitAudit(ctx, s.audit, s.logger, actor, models.AuditActionAttendanceModify, models.AuditResourceAttendance, record.ID, nil, record)
	return record, nil
}

func (s *AttendanceService) update(ctx context.Context, courseCode, studentID, date string, isPresent, isApproved *bool) (*models.AttendanceRecord, error) {
	day, err := parseDay(date)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.UpdateFlags(ctx, courseCode, studentID, day, isPresent, isApproved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update attendance")
	}
	return record, nil
}

// ComputePercentage returns the approved attendance stats of a student.
func (s *AttendanceService) ComputePercentage(ctx context.Context, studentID, courseCode string) (*models.AttendanceStats, error) {
	if studentID == "" || courseCode == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id and course code are required")
	}
	attended, missed, err := s.repo.CountApproved(ctx, studentID, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count attendance")
	}
	stats := ComputeAttendanceStats(attended, missed)
	return &stats, nil
}

// StudentAttendance returns stats and the full history for a student.
func (s *AttendanceService) StudentAttendance(ctx context.Context, studentID, courseCode string) (*models.StudentAttendanceReport, error) {
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, err
	}
	stats, err := s.ComputePercentage(ctx, studentID, courseCode)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.ListByStudentCourse(ctx, studentID, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return &models.StudentAttendanceReport{StudentID: studentID, CourseCode: courseCode, Stats: *stats, Records: records}, nil
}

// ListApprovalQueue returns unapproved records, newest first.
func (s *AttendanceService) ListApprovalQueue(ctx context.Context, courseCode string) ([]models.AttendanceRecord, error) {
	records, err := s.repo.ListUnapproved(ctx, courseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance queue")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

// parseDay accepts YYYY-MM-DD or RFC3339 and returns UTC midnight of the
// calendar day as written by the caller, whatever the offset.
func parseDay(raw string) (time.Time, error) {
	if t, err := time.Parse(attendanceDateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("invalid date %q", raw))
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
