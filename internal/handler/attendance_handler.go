package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	"github.com/noah-isme/academic-lifecycle-api/pkg/response"
)

type attendanceService interface {
	RecordAttendance(ctx context.Context, courseCode string, req service.RecordAttendancePayload, actor *models.JWTClaims) (*models.AttendanceRecord, error)
	BulkRecordAttendance(ctx context.Context, courseCode string, req service.BulkAttendancePayload, actor *models.JWTClaims) (*models.BulkAttendanceResult, error)
	ApproveAttendance(ctx context.Context, courseCode string, req service.AttendanceKeyPayload, actor *models.JWTClaims) (*models.AttendanceRecord, error)
	ModifyAttendance(ctx context.Context, courseCode string, req service.ModifyAttendancePayload, actor *models.JWTClaims) (*models.AttendanceRecord, error)
	StudentAttendance(ctx context.Context, studentID, courseCode string) (*models.StudentAttendanceReport, error)
	ListApprovalQueue(ctx context.Context, courseCode string) ([]models.AttendanceRecord, error)
}

// AttendanceHandler exposes mark-then-approve attendance endpoints.
type AttendanceHandler struct {
	attendance attendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance attendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Record godoc
// @Summary Record attendance for one student
// @Tags Attendance
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.RecordAttendancePayload true "Attendance payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{code}/attendance [post]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req service.RecordAttendancePayload
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	record, err := h.attendance.RecordAttendance(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Bulk godoc
// @Summary Record attendance in bulk
// @Description Rows are processed independently; failures are reported per row.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.BulkAttendancePayload true "Rows"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/attendance/bulk [post]
func (h *AttendanceHandler) Bulk(c *gin.Context) {
	var req service.BulkAttendancePayload
	if !bindJSON(c, &req, "invalid bulk attendance payload") {
		return
	}
	result, err := h.attendance.BulkRecordAttendance(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Approve godoc
// @Summary Approve an attendance record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.AttendanceKeyPayload true "Record key"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/attendance/approve [put]
func (h *AttendanceHandler) Approve(c *gin.Context) {
	var req service.AttendanceKeyPayload
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	record, err := h.attendance.ApproveAttendance(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Modify godoc
// @Summary Toggle presence or approval of a record
// @Tags Attendance
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.ModifyAttendancePayload true "Changes"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/attendance [patch]
func (h *AttendanceHandler) Modify(c *gin.Context) {
	var req service.ModifyAttendancePayload
	if !bindJSON(c, &req, "invalid attendance payload") {
		return
	}
	record, err := h.attendance.ModifyAttendance(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Queue godoc
// @Summary List unapproved attendance, newest first
// @Tags Attendance
// @Produce json
// @Param course_code query string false "Course code"
// @Success 200 {object} response.Envelope
// @Router /attendance/queue [get]
func (h *AttendanceHandler) Queue(c *gin.Context) {
	records, err := h.attendance.ListApprovalQueue(c.Request.Context(), strings.TrimSpace(c.Query("course_code")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, records)
}

// Student godoc
// @Summary Attendance percentage and history of a student
// @Tags Attendance
// @Produce json
// @Param id path string true "Student roll number"
// @Param courseCode path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/attendance/{courseCode} [get]
func (h *AttendanceHandler) Student(c *gin.Context) {
	report, err := h.attendance.StudentAttendance(c.Request.Context(), c.Param("id"), c.Param("courseCode"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}
