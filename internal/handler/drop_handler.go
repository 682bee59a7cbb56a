package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	"github.com/noah-isme/academic-lifecycle-api/pkg/response"
)

type dropService interface {
	CreateDropRequest(ctx context.Context, studentID string, req service.CreateDropRequestPayload) (*models.DropRequest, error)
	CancelDropRequest(ctx context.Context, studentID, id string) error
	ResolveDropRequest(ctx context.Context, id string, req service.ResolveDropRequestPayload, actor *models.JWTClaims) (*models.DropRequest, error)
	GetDropRequest(ctx context.Context, id string, actor *models.JWTClaims) (*models.DropRequest, error)
	ListDropRequests(ctx context.Context, filter models.DropRequestFilter) ([]models.DropRequest, *models.Pagination, error)
}

// DropHandler exposes drop request endpoints.
type DropHandler struct {
	drops dropService
}

// NewDropHandler constructs DropHandler.
func NewDropHandler(drops dropService) *DropHandler {
	return &DropHandler{drops: drops}
}

// Create godoc
// @Summary Request to drop an enrolled course
// @Tags Drop Requests
// @Accept json
// @Produce json
// @Param payload body service.CreateDropRequestPayload true "Drop payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /drop-requests [post]
func (h *DropHandler) Create(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	var req service.CreateDropRequestPayload
	if !bindJSON(c, &req, "invalid drop request payload") {
		return
	}
	created, err := h.drops.CreateDropRequest(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Cancel godoc
// @Summary Withdraw a pending drop request
// @Tags Drop Requests
// @Param id path string true "Drop request ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /drop-requests/{id} [delete]
func (h *DropHandler) Cancel(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.drops.CancelDropRequest(c.Request.Context(), studentID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List drop requests
// @Tags Drop Requests
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param student_id query string false "Student roll number"
// @Param course_code query string false "Course code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /drop-requests [get]
func (h *DropHandler) List(c *gin.Context) {
	filter := models.DropRequestFilter{
		Status:     models.DropRequestStatus(strings.TrimSpace(c.Query("status"))),
		StudentID:  strings.TrimSpace(c.Query("student_id")),
		CourseCode: strings.TrimSpace(c.Query("course_code")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	requests, pagination, err := h.drops.ListDropRequests(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Get drop request
// @Tags Drop Requests
// @Produce json
// @Param id path string true "Drop request ID"
// @Success 200 {object} response.Envelope
// @Router /drop-requests/{id} [get]
func (h *DropHandler) Get(c *gin.Context) {
	req, err := h.drops.GetDropRequest(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req)
}

// Resolve godoc
// @Summary Approve or reject a drop request
// @Tags Drop Requests
// @Accept json
// @Produce json
// @Param id path string true "Drop request ID"
// @Param payload body service.ResolveDropRequestPayload true "Decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /drop-requests/{id}/resolve [put]
func (h *DropHandler) Resolve(c *gin.Context) {
	var req service.ResolveDropRequestPayload
	if !bindJSON(c, &req, "invalid decision payload") {
		return
	}
	resolved, err := h.drops.ResolveDropRequest(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resolved)
}
