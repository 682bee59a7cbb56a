package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-lifecycle-api/internal/middleware"
	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
	"github.com/noah-isme/academic-lifecycle-api/pkg/response"
)

type feedbackService interface {
	SubmitFeedback(ctx context.Context, studentID string, req service.SubmitFeedbackPayload) (*models.FeedbackEntry, error)
	GetStatistics(ctx context.Context, facultyID, courseCode string) (*models.FeedbackStatistics, bool, error)
}

type feedbackSettings interface {
	Snapshot() models.FeedbackSettings
	SetFeedbackEnabled(ctx context.Context, enabled bool, actor *models.JWTClaims) (models.FeedbackSettings, error)
}

// UpdateFeedbackSettingsRequest flips the feedback toggle.
type UpdateFeedbackSettingsRequest struct {
	Enabled *bool `json:"enabled"`
}

// FeedbackHandler exposes the feedback ledger.
type FeedbackHandler struct {
	feedback feedbackService
	settings feedbackSettings
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(feedback feedbackService, settings feedbackSettings) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, settings: settings}
}

// Submit godoc
// @Summary Submit course feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body service.SubmitFeedbackPayload true "Feedback"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	studentID, ok := callerID(c)
	if !ok {
		return
	}
	var req service.SubmitFeedbackPayload
	if !bindJSON(c, &req, "invalid feedback payload") {
		return
	}
	entry, err := h.feedback.SubmitFeedback(c.Request.Context(), studentID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Statistics godoc
// @Summary Aggregated feedback for a faculty/course pair
// @Tags Feedback
// @Produce json
// @Param faculty_id query string true "Faculty ID"
// @Param course_code query string true "Course code"
// @Success 200 {object} response.Envelope
// @Router /feedback/statistics [get]
func (h *FeedbackHandler) Statistics(c *gin.Context) {
	facultyID := strings.TrimSpace(c.Query("faculty_id"))
	courseCode := strings.TrimSpace(c.Query("course_code"))
	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleFaculty && claims.UserID != facultyID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "faculty may only read their own feedback"))
		return
	}
	stats, cached, err := h.feedback.GetStatistics(c.Request.Context(), facultyID, courseCode)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, stats, nil, middleware.Meta(c))
}

// Settings godoc
// @Summary Read the feedback toggle
// @Tags Feedback
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /feedback/settings [get]
func (h *FeedbackHandler) Settings(c *gin.Context) {
	response.OK(c, h.settings.Snapshot())
}

// UpdateSettings godoc
// @Summary Enable or disable feedback submission
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body UpdateFeedbackSettingsRequest true "Toggle"
// @Success 200 {object} response.Envelope
// @Router /feedback/settings [put]
func (h *FeedbackHandler) UpdateSettings(c *gin.Context) {
	var req UpdateFeedbackSettingsRequest
	if !bindJSON(c, &req, "invalid settings payload") {
		return
	}
	if req.Enabled == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "enabled is required"))
		return
	}
	snapshot, err := h.settings.SetFeedbackEnabled(c.Request.Context(), *req.Enabled, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, snapshot)
}
