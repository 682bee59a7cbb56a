package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-lifecycle-api/internal/middleware"
	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/service"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type envelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newContext(method, path string, body interface{}, claims *models.JWTClaims, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = params
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type enrollmentServiceMock struct {
	studentID string
	approved  service.RegistrationDecisionPayload
	err       error
}

func (m *enrollmentServiceMock) RequestRegistration(ctx context.Context, studentID string, req service.RegistrationRequestPayload) (*models.RegistrationRequest, error) {
	m.studentID = studentID
	if m.err != nil {
		return nil, m.err
	}
	return &models.RegistrationRequest{ID: "r1", StudentID: studentID, CourseCode: req.CourseCode}, nil
}

func (m *enrollmentServiceMock) CancelRegistration(ctx context.Context, studentID, courseCode string) error {
	m.studentID = studentID
	return m.err
}

func (m *enrollmentServiceMock) ListPendingRegistrations(ctx context.Context, courseCode string) ([]models.RegistrationRequest, error) {
	return []models.RegistrationRequest{}, m.err
}

func (m *enrollmentServiceMock) ApproveRegistrations(ctx context.Context, courseCode string, req service.RegistrationDecisionPayload, actor *models.JWTClaims) (*models.RegistrationBatchResult, error) {
	m.approved = req
	return &models.RegistrationBatchResult{Approved: req.StudentIDs, Skipped: []string{}, Failed: []models.RegistrationFailure{}}, m.err
}

func (m *enrollmentServiceMock) RejectRegistrations(ctx context.Context, courseCode string, req service.RegistrationDecisionPayload, actor *models.JWTClaims) (*models.RegistrationBatchResult, error) {
	return &models.RegistrationBatchResult{Rejected: req.StudentIDs}, m.err
}

func (m *enrollmentServiceMock) ListStudentEnrollments(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	return []models.EnrollmentDetail{}, m.err
}

func (m *enrollmentServiceMock) PostGrades(ctx context.Context, courseCode string, req service.PostGradesPayload, actor *models.JWTClaims) (*models.GradeBatchResult, error) {
	return &models.GradeBatchResult{Graded: []string{}, Failed: []models.RegistrationFailure{}}, m.err
}

func TestRequestRegistrationUsesCaller(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)
	c, w := newContext(http.MethodPost, "/registrations", service.RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "CREDIT", Semester: "1"},
		&models.JWTClaims{UserID: "B1", Role: models.RoleStudent}, nil)

	h.RequestRegistration(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "B1", svc.studentID)
}

func TestRequestRegistrationWithoutClaims(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newContext(http.MethodPost, "/registrations", `{}`, nil, nil)

	h.RequestRegistration(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestRegistrationConflict(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "registration request already pending")})
	c, w := newContext(http.MethodPost, "/registrations", service.RegistrationRequestPayload{CourseCode: "CS101"},
		&models.JWTClaims{UserID: "B1", Role: models.RoleStudent}, nil)

	h.RequestRegistration(c)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
	assert.Equal(t, "registration request already pending", env.Error.Message)
}

func TestApproveRegistrationsInvalidBody(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newContext(http.MethodPost, "/courses/CS101/registrations/approve", `invalid`, &models.JWTClaims{UserID: "A1", Role: models.RoleAdmin},
		gin.Params{{Key: "code", Value: "CS101"}})

	h.Approve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestApproveRegistrationsReturnsFold(t *testing.T) {
	svc := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(svc)
	c, w := newContext(http.MethodPost, "/courses/CS101/registrations/approve", service.RegistrationDecisionPayload{StudentIDs: []string{"B1", "B2"}},
		&models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}, gin.Params{{Key: "code", Value: "CS101"}})

	h.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	var result models.RegistrationBatchResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, []string{"B1", "B2"}, result.Approved)
}

type dropServiceMock struct {
	cancelled string
	resolved  service.ResolveDropRequestPayload
	err       error
}

func (m *dropServiceMock) CreateDropRequest(ctx context.Context, studentID string, req service.CreateDropRequestPayload) (*models.DropRequest, error) {
	return &models.DropRequest{ID: "d1", StudentID: studentID, CourseCode: req.CourseCode, Status: models.DropRequestStatusPending}, m.err
}

func (m *dropServiceMock) CancelDropRequest(ctx context.Context, studentID, id string) error {
	m.cancelled = id
	return m.err
}

func (m *dropServiceMock) ResolveDropRequest(ctx context.Context, id string, req service.ResolveDropRequestPayload, actor *models.JWTClaims) (*models.DropRequest, error) {
	m.resolved = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.DropRequest{ID: id, Status: req.Decision}, nil
}

func (m *dropServiceMock) GetDropRequest(ctx context.Context, id string, actor *models.JWTClaims) (*models.DropRequest, error) {
	return &models.DropRequest{ID: id}, m.err
}

func (m *dropServiceMock) ListDropRequests(ctx context.Context, filter models.DropRequestFilter) ([]models.DropRequest, *models.Pagination, error) {
	return []models.DropRequest{}, models.NewPagination(filter.Page, filter.PageSize, 0), m.err
}

func TestDropHandlerCancel(t *testing.T) {
	svc := &dropServiceMock{}
	h := NewDropHandler(svc)
	c, w := newContext(http.MethodDelete, "/drop-requests/d1", nil, &models.JWTClaims{UserID: "B1", Role: models.RoleStudent}, gin.Params{{Key: "id", Value: "d1"}})

	h.Cancel(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "d1", svc.cancelled)
}

func TestDropHandlerResolveAlreadyResolved(t *testing.T) {
	h := NewDropHandler(&dropServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "drop request already resolved")})
	c, w := newContext(http.MethodPut, "/drop-requests/d1/resolve", service.ResolveDropRequestPayload{Decision: models.DropRequestStatusApproved},
		&models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}, gin.Params{{Key: "id", Value: "d1"}})

	h.Resolve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDropHandlerListPagination(t *testing.T) {
	h := NewDropHandler(&dropServiceMock{})
	c, w := newContext(http.MethodGet, "/drop-requests?status=PENDING&page=2&limit=5", nil, &models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}, nil)

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 2, env.Pagination.Page)
	assert.Equal(t, 5, env.Pagination.PageSize)
}

type attendanceServiceMock struct {
	bulk service.BulkAttendancePayload
}

func (m *attendanceServiceMock) RecordAttendance(ctx context.Context, courseCode string, req service.RecordAttendancePayload, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	return &models.AttendanceRecord{CourseCode: courseCode, StudentID: req.StudentID}, nil
}

func (m *attendanceServiceMock) BulkRecordAttendance(ctx context.Context, courseCode string, req service.BulkAttendancePayload, actor *models.JWTClaims) (*models.BulkAttendanceResult, error) {
	m.bulk = req
	return &models.BulkAttendanceResult{
		SuccessCount: 2,
		FailureCount: 1,
		Results:      []models.BulkAttendanceRowResult{},
		Errors:       []string{`row 2 (B2): invalid date "2023-13-40"`},
	}, nil
}

func (m *attendanceServiceMock) ApproveAttendance(ctx context.Context, courseCode string, req service.AttendanceKeyPayload, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
}

func (m *attendanceServiceMock) ModifyAttendance(ctx context.Context, courseCode string, req service.ModifyAttendancePayload, actor *models.JWTClaims) (*models.AttendanceRecord, error) {
	return &models.AttendanceRecord{}, nil
}

func (m *attendanceServiceMock) StudentAttendance(ctx context.Context, studentID, courseCode string) (*models.StudentAttendanceReport, error) {
	return &models.StudentAttendanceReport{StudentID: studentID, CourseCode: courseCode, Stats: models.AttendanceStats{Attended: 8, Missed: 2, Percentage: 80}}, nil
}

func (m *attendanceServiceMock) ListApprovalQueue(ctx context.Context, courseCode string) ([]models.AttendanceRecord, error) {
	return []models.AttendanceRecord{}, nil
}

func TestAttendanceBulkAlwaysOK(t *testing.T) {
	svc := &attendanceServiceMock{}
	h := NewAttendanceHandler(svc)
	payload := map[string]interface{}{"rows": []map[string]string{
		{"roll_no": "B1", "date": "2023-09-01", "status": "present"},
		{"roll_no": "B2", "date": "2023-13-40", "status": "present"},
		{"roll_no": "B3", "date": "2023-09-01", "status": "absent"},
	}}
	c, w := newContext(http.MethodPost, "/courses/CS101/attendance/bulk", payload, &models.JWTClaims{UserID: "F1", Role: models.RoleFaculty}, gin.Params{{Key: "code", Value: "CS101"}})

	h.Bulk(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, svc.bulk.Rows, 3)
	var result models.BulkAttendanceResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
}

func TestAttendanceApproveNotFound(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})
	c, w := newContext(http.MethodPut, "/courses/CS101/attendance/approve", service.AttendanceKeyPayload{StudentID: "B1", Date: "2023-09-01"},
		&models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}, gin.Params{{Key: "code", Value: "CS101"}})

	h.Approve(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceStudentReport(t *testing.T) {
	h := NewAttendanceHandler(&attendanceServiceMock{})
	c, w := newContext(http.MethodGet, "/students/B1/attendance/CS101", nil, &models.JWTClaims{UserID: "B1", Role: models.RoleStudent},
		gin.Params{{Key: "id", Value: "B1"}, {Key: "courseCode", Value: "CS101"}})

	h.Student(c)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.StudentAttendanceReport
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &report))
	assert.Equal(t, 80.0, report.Stats.Percentage)
}

type feedbackServiceMock struct {
	cached bool
}

func (m *feedbackServiceMock) SubmitFeedback(ctx context.Context, studentID string, req service.SubmitFeedbackPayload) (*models.FeedbackEntry, error) {
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "feedback submission is disabled")
}

func (m *feedbackServiceMock) GetStatistics(ctx context.Context, facultyID, courseCode string) (*models.FeedbackStatistics, bool, error) {
	return &models.FeedbackStatistics{FacultyID: facultyID, CourseCode: courseCode}, m.cached, nil
}

type settingsMock struct {
	enabled bool
	err     error
}

func (m *settingsMock) Snapshot() models.FeedbackSettings {
	return models.FeedbackSettings{Enabled: m.enabled}
}

func (m *settingsMock) SetFeedbackEnabled(ctx context.Context, enabled bool, actor *models.JWTClaims) (models.FeedbackSettings, error) {
	if m.err != nil {
		return m.Snapshot(), m.err
	}
	m.enabled = enabled
	return m.Snapshot(), nil
}

func TestFeedbackSubmitDisabled(t *testing.T) {
	h := NewFeedbackHandler(&feedbackServiceMock{}, &settingsMock{})
	c, w := newContext(http.MethodPost, "/feedback", service.SubmitFeedbackPayload{FacultyID: "F1", CourseCode: "CS101"},
		&models.JWTClaims{UserID: "B1", Role: models.RoleStudent}, nil)

	h.Submit(c)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestFeedbackSubmitRejectsFractionalRating(t *testing.T) {
	h := NewFeedbackHandler(&feedbackServiceMock{}, &settingsMock{enabled: true})
	body := `{"faculty_id":"F1","course_code":"CS101","ratings":[{"question_id":"Q1","rating":2.5}]}`
	c, w := newContext(http.MethodPost, "/feedback", body, &models.JWTClaims{UserID: "B1", Role: models.RoleStudent}, nil)

	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestFeedbackStatisticsFacultyScope(t *testing.T) {
	h := NewFeedbackHandler(&feedbackServiceMock{cached: true}, &settingsMock{})

	c, w := newContext(http.MethodGet, "/feedback/statistics?faculty_id=F2&course_code=CS101", nil, &models.JWTClaims{UserID: "F1", Role: models.RoleFaculty}, nil)
	h.Statistics(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newContext(http.MethodGet, "/feedback/statistics?faculty_id=F1&course_code=CS101", nil, &models.JWTClaims{UserID: "F1", Role: models.RoleFaculty}, nil)
	h.Statistics(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestFeedbackUpdateSettings(t *testing.T) {
	settings := &settingsMock{enabled: true}
	h := NewFeedbackHandler(&feedbackServiceMock{}, settings)
	admin := &models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}

	c, w := newContext(http.MethodPut, "/feedback/settings", `{}`, admin, nil)
	h.UpdateSettings(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodPut, "/feedback/settings", `{"enabled":false}`, admin, nil)
	h.UpdateSettings(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, settings.enabled)

	settings.err = appErrors.Wrap(errors.New("db down"), appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist feedback toggle")
	c, w = newContext(http.MethodPut, "/feedback/settings", `{"enabled":true}`, admin, nil)
	h.UpdateSettings(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, settings.enabled)
}

type performanceServiceMock struct{}

func (performanceServiceMock) GetPerformance(ctx context.Context, studentID string) ([]models.SemesterPerformance, error) {
	if studentID != "B1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return []models.SemesterPerformance{{Semester: "1", Credits: 10, SPI: 8.8, CPI: 8.8}}, nil
}

func TestPerformanceHandler(t *testing.T) {
	h := NewPerformanceHandler(performanceServiceMock{})

	c, w := newContext(http.MethodGet, "/students/B1/performance", nil, &models.JWTClaims{UserID: "B1", Role: models.RoleStudent}, gin.Params{{Key: "id", Value: "B1"}})
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []models.SemesterPerformance
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 8.8, rows[0].SPI)

	c, w = newContext(http.MethodGet, "/students/ZZ/performance", nil, &models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}, gin.Params{{Key: "id", Value: "ZZ"}})
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestReadyReflectsDatabase(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), pingerStub{})
	c, w := newContext(http.MethodGet, "/ready", nil, nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	h = NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")})
	c, w = newContext(http.MethodGet, "/ready", nil, nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newContext(http.MethodGet, "/metrics", nil, nil, nil)
	h.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type catalogServiceMock struct {
	filter   models.CourseFilter
	assigned service.AssignFacultyRequest
}

func (m *catalogServiceMock) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	if code != "CS101" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &models.Course{Code: code, Name: "Programming", Credits: 6}, nil
}

func (m *catalogServiceMock) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	m.filter = filter
	return []models.Course{{Code: "CS101"}}, models.NewPagination(filter.Page, filter.PageSize, 1), nil
}

func (m *catalogServiceMock) UpsertCourse(ctx context.Context, code string, req service.UpsertCourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	return &models.Course{Code: code, Name: req.Name, Credits: req.Credits}, nil
}

func (m *catalogServiceMock) DeleteCourse(ctx context.Context, code string, actor *models.JWTClaims) error {
	return appErrors.Clone(appErrors.ErrConflict, "course has enrollments")
}

func (m *catalogServiceMock) AssignFaculty(ctx context.Context, courseCode string, req service.AssignFacultyRequest) error {
	m.assigned = req
	return nil
}

func (m *catalogServiceMock) ListFacultyCourses(ctx context.Context, facultyID string) ([]models.FacultyCourse, error) {
	return []models.FacultyCourse{{FacultyID: facultyID, CourseCode: "CS101"}}, nil
}

func TestCatalogHandler(t *testing.T) {
	svc := &catalogServiceMock{}
	h := NewCatalogHandler(svc)
	admin := &models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}

	c, w := newContext(http.MethodGet, "/courses?department=CS&search=prog", nil, admin, nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CS", svc.filter.Department)
	assert.Equal(t, "prog", svc.filter.Search)
	assert.Equal(t, 20, svc.filter.PageSize)

	c, w = newContext(http.MethodGet, "/courses/XX", nil, admin, gin.Params{{Key: "code", Value: "XX"}})
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(http.MethodDelete, "/courses/CS101", nil, admin, gin.Params{{Key: "code", Value: "CS101"}})
	h.Delete(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newContext(http.MethodPost, "/courses/CS101/faculty", service.AssignFacultyRequest{FacultyID: "F1"}, admin, gin.Params{{Key: "code", Value: "CS101"}})
	h.AssignFaculty(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "F1", svc.assigned.FacultyID)
}
