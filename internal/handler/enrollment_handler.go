package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	"github.com/noah-isme/academic-lifecycle-api/pkg/response"
)

type enrollmentService interface {
	RequestRegistration(ctx context.Context, studentID string, req service.RegistrationRequestPayload) (*models.RegistrationRequest, error)
	CancelRegistration(ctx context.Context, studentID, courseCode string) error
	ListPendingRegistrations(ctx context.Context, courseCode string) ([]models.RegistrationRequest, error)
	ApproveRegistrations(ctx context.Context, courseCode string, req service.RegistrationDecisionPayload, actor *models.JWTClaims) (*models.RegistrationBatchResult, error)
	RejectRegistrations(ctx context.Context, courseCode string, req service.RegistrationDecisionPayload, actor *models.JWTClaims) (*models.RegistrationBatchResult, error)
	ListStudentEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
	PostGrades(ctx context.Context, courseCode string, req service.PostGradesPayload, actor *models.JWTClaims) (*models.GradeBatchResult, error)
}

// EnrollmentHandler exposes registration, enrollment and grading endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// RequestRegistration godoc
// @Summary Request course registration
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body service.RegistrationRequestPayload true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /registrations [post]
func (h *EnrollmentHandler) RequestRegistration(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	var req service.RegistrationRequestPayload
	if !bindJSON(c, &req, "invalid registration payload") {
		return
	}
	request, err := h.enrollments.RequestRegistration(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// CancelRegistration godoc
// @Summary Withdraw a pending registration request
// @Tags Enrollment
// @Param courseCode path string true "Course code"
// @Success 204
// @Router /registrations/{courseCode} [delete]
func (h *EnrollmentHandler) CancelRegistration(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.enrollments.CancelRegistration(c.Request.Context(), studentID, c.Param("courseCode")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListPending godoc
// @Summary List pending registration requests of a course
// @Tags Enrollment
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/registrations [get]
func (h *EnrollmentHandler) ListPending(c *gin.Context) {
	requests, err := h.enrollments.ListPendingRegistrations(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, requests)
}

// Approve godoc
// @Summary Approve registration requests
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.RegistrationDecisionPayload true "Students to approve"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/registrations/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	var req service.RegistrationDecisionPayload
	if !bindJSON(c, &req, "invalid approval payload") {
		return
	}
	result, err := h.enrollments.ApproveRegistrations(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Reject godoc
// @Summary Reject registration requests
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.RegistrationDecisionPayload true "Students to reject"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/registrations/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	var req service.RegistrationDecisionPayload
	if !bindJSON(c, &req, "invalid rejection payload") {
		return
	}
	result, err := h.enrollments.RejectRegistrations(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// StudentEnrollments godoc
// @Summary List a student's enrollments
// @Tags Enrollment
// @Produce json
// @Param id path string true "Student roll number"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *EnrollmentHandler) StudentEnrollments(c *gin.Context) {
	enrollments, err := h.enrollments.ListStudentEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, enrollments)
}

// PostGrades godoc
// @Summary Post grades for a course
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.PostGradesPayload true "Grades"
// @Success 200 {object} response.Envelope
// @Router /courses/{code}/grades [post]
func (h *EnrollmentHandler) PostGrades(c *gin.Context) {
	var req service.PostGradesPayload
	if !bindJSON(c, &req, "invalid grades payload") {
		return
	}
	result, err := h.enrollments.PostGrades(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
