package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/pkg/response"
)

type performanceService interface {
	GetPerformance(ctx context.Context, studentID string) ([]models.SemesterPerformance, error)
}

// PerformanceHandler serves derived SPI/CPI.
type PerformanceHandler struct {
	performance performanceService
}

// NewPerformanceHandler constructs PerformanceHandler.
func NewPerformanceHandler(performance performanceService) *PerformanceHandler {
	return &PerformanceHandler{performance: performance}
}

// Get godoc
// @Summary Semester performance of a student
// @Tags Performance
// @Produce json
// @Param id path string true "Student roll number"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/performance [get]
func (h *PerformanceHandler) Get(c *gin.Context) {
	rows, err := h.performance.GetPerformance(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}
