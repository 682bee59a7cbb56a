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

type catalogService interface {
	GetCourse(ctx context.Context, code string) (*models.Course, error)
	ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	UpsertCourse(ctx context.Context, code string, req service.UpsertCourseRequest, actor *models.JWTClaims) (*models.Course, error)
	DeleteCourse(ctx context.Context, code string, actor *models.JWTClaims) error
	AssignFaculty(ctx context.Context, courseCode string, req service.AssignFacultyRequest) error
	ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourse, error)
}

// CatalogHandler exposes course catalog endpoints.
type CatalogHandler struct {
	catalog catalogService
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(catalog catalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List godoc
// @Summary List courses
// @Tags Catalog
// @Produce json
// @Param department query string false "Department"
// @Param search query string false "Search by code or name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) List(c *gin.Context) {
	filter := models.CourseFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Search:     strings.TrimSpace(c.Query("search")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	courses, pagination, err := h.catalog.ListCourses(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course
// @Tags Catalog
// @Produce json
// @Param code path string true "Course code"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{code} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	course, err := h.catalog.GetCourse(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Upsert godoc
// @Summary Create or update course
// @Tags Catalog
// @Accept json
// @Produce json
// @Param code path string true "Course code"
// @Param payload body service.UpsertCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Router /courses/{code} [put]
func (h *CatalogHandler) Upsert(c *gin.Context) {
	var req service.UpsertCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.catalog.UpsertCourse(c.Request.Context(), c.Param("code"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, course)
}

// Delete godoc
// @Summary Delete course
// @Tags Catalog
// @Param code path string true "Course code"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /courses/{code} [delete]
func (h *CatalogHandler) Delete(c *gin.Context) {
	if err := h.catalog.DeleteCourse(c.Request.Context(), c.Param("code"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignFaculty godoc
// @Summary Assign faculty to course
// @Tags Catalog
// @Accept json
// @Param code path string true "Course code"
// @Param payload body service.AssignFacultyRequest true "Faculty payload"
// @Success 204
// @Router /courses/{code}/faculty [post]
func (h *CatalogHandler) AssignFaculty(c *gin.Context) {
	var req service.AssignFacultyRequest
	if !bindJSON(c, &req, "invalid faculty payload") {
		return
	}
	if err := h.catalog.AssignFaculty(c.Request.Context(), c.Param("code"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// FacultyCourses godoc
// @Summary List courses taught by a faculty member
// @Tags Catalog
// @Produce json
// @Param id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Router /faculty/{id}/courses [get]
func (h *CatalogHandler) FacultyCourses(c *gin.Context) {
	offerings, err := h.catalog.ListFacultyCourses(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, offerings)
}
