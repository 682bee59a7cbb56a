package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

func pairKey(studentID, courseCode string) string {
	return studentID + "|" + courseCode
}

type catalogStub struct {
	courses   map[string]models.Course
	students  map[string]models.Student
	faculty   map[string]models.Faculty
	offerings map[string]bool
}

func newCatalogStub() *catalogStub {
	return &catalogStub{
		courses: map[string]models.Course{
			"CS101": {Code: "CS101", Name: "Programming", Credits: 6},
			"MA101": {Code: "MA101", Name: "Calculus", Credits: 4},
		},
		students: map[string]models.Student{
			"B1": {ID: "B1", FullName: "Student One", Active: true},
			"B2": {ID: "B2", FullName: "Student Two", Active: true},
			"B3": {ID: "B3", FullName: "Student Three", Active: true},
		},
		faculty: map[string]models.Faculty{
			"F1": {ID: "F1", FullName: "Faculty One", Active: true},
			"F2": {ID: "F2", FullName: "Faculty Two", Active: true},
		},
		offerings: map[string]bool{pairKey("F1", "CS101"): true},
	}
}

func (c *catalogStub) GetCourse(ctx context.Context, code string) (*models.Course, error) {
	course, ok := c.courses[code]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return &course, nil
}

func (c *catalogStub) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, ok := c.students[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return &student, nil
}

func (c *catalogStub) GetFaculty(ctx context.Context, id string) (*models.Faculty, error) {
	faculty, ok := c.faculty[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty not found")
	}
	return &faculty, nil
}

func (c *catalogStub) OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error) {
	return c.offerings[pairKey(facultyID, courseCode)], nil
}

// academicStore backs both registration requests and enrollments so that
// approval can claim a request and create the enrollment atomically.
type academicStore struct {
	mu          sync.Mutex
	requests    map[string]models.RegistrationRequest
	enrollments map[string]*models.Enrollment
	maxIntake   map[string]int
	credits     map[string]int
	err         error
}

func newAcademicStore() *academicStore {
	return &academicStore{
		requests:    map[string]models.RegistrationRequest{},
		enrollments: map[string]*models.Enrollment{},
		maxIntake:   map[string]int{},
		credits:     map[string]int{"CS101": 6, "MA101": 4},
	}
}

func (s *academicStore) enroll(studentID, courseCode, semester string) *models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment := &models.Enrollment{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		CourseCode:    courseCode,
		CreditOrAudit: models.CreditOrAuditCredit,
		Semester:      semester,
		Status:        models.EnrollmentStatusApproved,
	}
	s.enrollments[pairKey(studentID, courseCode)] = enrollment
	return enrollment
}

func (s *academicStore) Create(ctx context.Context, req *models.RegistrationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	key := pairKey(req.StudentID, req.CourseCode)
	if _, exists := s.requests[key]; exists {
		return repository.ErrDuplicate
	}
	req.ID = uuid.NewString()
	req.CreatedAt = time.Now().UTC()
	s.requests[key] = *req
	return nil
}

func (s *academicStore) ListByCourse(ctx context.Context, courseCode string) ([]models.RegistrationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.RegistrationRequest{}
	for _, req := range s.requests {
		if req.CourseCode == courseCode {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StudentID < result[j].StudentID })
	return result, nil
}

func (s *academicStore) Delete(ctx context.Context, studentID, courseCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	key := pairKey(studentID, courseCode)
	if _, ok := s.requests[key]; !ok {
		return false, nil
	}
	delete(s.requests, key)
	return true, nil
}

func (s *academicStore) FindByStudentAndCourse(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[pairKey(studentID, courseCode)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *enrollment
	return &copied, nil
}

func (s *academicStore) Exists(ctx context.Context, studentID, courseCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.enrollments[pairKey(studentID, courseCode)]
	return ok, nil
}

func (s *academicStore) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.EnrollmentDetail{}
	for _, enrollment := range s.enrollments {
		if enrollment.StudentID == studentID {
			result = append(result, models.EnrollmentDetail{Enrollment: *enrollment, Credits: s.credits[enrollment.CourseCode]})
		}
	}
	return result, nil
}

func (s *academicStore) ApproveRequest(ctx context.Context, studentID, courseCode string) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	key := pairKey(studentID, courseCode)
	req, ok := s.requests[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if limit := s.maxIntake[courseCode]; limit > 0 {
		count := 0
		for _, enrollment := range s.enrollments {
			if enrollment.CourseCode == courseCode {
				count++
			}
		}
		if _, already := s.enrollments[key]; !already && count >= limit {
			return nil, repository.ErrIntakeFull
		}
	}
	if existing, ok := s.enrollments[key]; ok && existing.IsCompleted {
		return nil, repository.ErrAlreadyGraded
	}
	delete(s.requests, key)
	enrollment := &models.Enrollment{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		CourseCode:    courseCode,
		CreditOrAudit: req.CreditOrAudit,
		Semester:      req.Semester,
		Status:        models.EnrollmentStatusApproved,
	}
	if existing, ok := s.enrollments[key]; ok {
		enrollment.ID = existing.ID
	}
	s.enrollments[key] = enrollment
	copied := *enrollment
	return &copied, nil
}

func (s *academicStore) PostGrade(ctx context.Context, studentID, courseCode string, grade models.Grade) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	enrollment, ok := s.enrollments[pairKey(studentID, courseCode)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if enrollment.IsCompleted {
		return nil, repository.ErrAlreadyGraded
	}
	g := grade
	now := time.Now().UTC()
	enrollment.Grade = &g
	enrollment.IsCompleted = true
	enrollment.GradedAt = &now
	copied := *enrollment
	return &copied, nil
}

func (s *academicStore) ListCompletedCredit(ctx context.Context, studentID string) ([]models.CompletedCourse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := []models.CompletedCourse{}
	for _, enrollment := range s.enrollments {
		if enrollment.StudentID != studentID || !enrollment.IsCompleted || enrollment.CreditOrAudit != models.CreditOrAuditCredit {
			continue
		}
		result = append(result, models.CompletedCourse{
			CourseCode: enrollment.CourseCode,
			Semester:   enrollment.Semester,
			Grade:      *enrollment.Grade,
			Credits:    s.credits[enrollment.CourseCode],
		})
	}
	return result, nil
}

type dropRepoStub struct {
	store    *academicStore
	requests map[string]*models.DropRequest
}

func newDropRepoStub(store *academicStore) *dropRepoStub {
	return &dropRepoStub{store: store, requests: map[string]*models.DropRequest{}}
}

func (r *dropRepoStub) Create(ctx context.Context, req *models.DropRequest) error {
	for _, existing := range r.requests {
		if existing.StudentID == req.StudentID && existing.CourseCode == req.CourseCode && existing.Status == models.DropRequestStatusPending {
			return repository.ErrDuplicate
		}
	}
	req.ID = uuid.NewString()
	req.Status = models.DropRequestStatusPending
	req.RequestedAt = time.Now().UTC()
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *dropRepoStub) FindByID(ctx context.Context, id string) (*models.DropRequest, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	return &copied, nil
}

func (r *dropRepoStub) List(ctx context.Context, filter models.DropRequestFilter) ([]models.DropRequest, int, error) {
	result := []models.DropRequest{}
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		result = append(result, *req)
	}
	return result, len(result), nil
}

func (r *dropRepoStub) DeletePendingOwned(ctx context.Context, id, studentID string) (bool, error) {
	req, ok := r.requests[id]
	if !ok || req.StudentID != studentID || req.Status != models.DropRequestStatusPending {
		return false, nil
	}
	delete(r.requests, id)
	return true, nil
}

func (r *dropRepoStub) resolve(id string, status models.DropRequestStatus, remarks, reviewer *string) (*models.DropRequest, error) {
	req, ok := r.requests[id]
	if !ok || req.Status != models.DropRequestStatusPending {
		return nil, repository.ErrNotPending
	}
	now := time.Now().UTC()
	req.Status = status
	req.Remarks = remarks
	req.ReviewedBy = reviewer
	req.ReviewedAt = &now
	copied := *req
	return &copied, nil
}

func (r *dropRepoStub) Reject(ctx context.Context, id string, remarks, reviewer *string) (*models.DropRequest, error) {
	return r.resolve(id, models.DropRequestStatusRejected, remarks, reviewer)
}

func (r *dropRepoStub) Approve(ctx context.Context, id string, remarks, reviewer *string) (*models.DropRequest, error) {
	req, ok := r.requests[id]
	if !ok || req.Status != models.DropRequestStatusPending {
		return nil, repository.ErrNotPending
	}
	key := pairKey(req.StudentID, req.CourseCode)
	r.store.mu.Lock()
	enrollment, enrolled := r.store.enrollments[key]
	if !enrolled || enrollment.IsCompleted {
		r.store.mu.Unlock()
		return nil, repository.ErrEnrollmentMissing
	}
	delete(r.store.enrollments, key)
	r.store.mu.Unlock()
	return r.resolve(id, models.DropRequestStatusApproved, remarks, reviewer)
}

type attendanceRepoStub struct {
	records map[string]*models.AttendanceRecord
	order   []string
}

func newAttendanceRepoStub() *attendanceRepoStub {
	return &attendanceRepoStub{records: map[string]*models.AttendanceRecord{}}
}

func attendanceKey(courseCode, studentID string, day time.Time) string {
	return courseCode + "|" + studentID + "|" + day.Format(attendanceDateLayout)
}

func (r *attendanceRepoStub) Create(ctx context.Context, record *models.AttendanceRecord) error {
	key := attendanceKey(record.CourseCode, record.StudentID, record.Date)
	if _, ok := r.records[key]; ok {
		return repository.ErrDuplicate
	}
	record.ID = uuid.NewString()
	copied := *record
	r.records[key] = &copied
	r.order = append(r.order, key)
	return nil
}

func (r *attendanceRepoStub) UpdateFlags(ctx context.Context, courseCode, studentID string, day time.Time, isPresent, isApproved *bool) (*models.AttendanceRecord, error) {
	record, ok := r.records[attendanceKey(courseCode, studentID, day)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if isPresent != nil {
		record.IsPresent = *isPresent
	}
	if isApproved != nil {
		record.IsApproved = *isApproved
	}
	copied := *record
	return &copied, nil
}

func (r *attendanceRepoStub) CountApproved(ctx context.Context, studentID, courseCode string) (int, int, error) {
	var attended, missed int
	for _, record := range r.records {
		if record.StudentID != studentID || record.CourseCode != courseCode || !record.IsApproved {
			continue
		}
		if record.IsPresent {
			attended++
		} else {
			missed++
		}
	}
	return attended, missed, nil
}

func (r *attendanceRepoStub) ListByStudentCourse(ctx context.Context, studentID, courseCode string) ([]models.AttendanceRecord, error) {
	var result []models.AttendanceRecord
	for _, key := range r.order {
		record := r.records[key]
		if record.StudentID == studentID && record.CourseCode == courseCode {
			result = append(result, *record)
		}
	}
	return result, nil
}

func (r *attendanceRepoStub) ListUnapproved(ctx context.Context, courseCode string) ([]models.AttendanceRecord, error) {
	var result []models.AttendanceRecord
	for i := len(r.order) - 1; i >= 0; i-- {
		record := r.records[r.order[i]]
		if record.IsApproved || (courseCode != "" && record.CourseCode != courseCode) {
			continue
		}
		result = append(result, *record)
	}
	return result, nil
}

type feedbackRepoStub struct {
	entries map[string]*models.FeedbackEntry
	writes  int
}

func newFeedbackRepoStub() *feedbackRepoStub {
	return &feedbackRepoStub{entries: map[string]*models.FeedbackEntry{}}
}

func (r *feedbackRepoStub) Exists(ctx context.Context, studentID, facultyID, courseCode string) (bool, error) {
	_, ok := r.entries[strings.Join([]string{studentID, facultyID, courseCode}, "|")]
	return ok, nil
}

func (r *feedbackRepoStub) Upsert(ctx context.Context, entry *models.FeedbackEntry) error {
	r.writes++
	entry.ID = uuid.NewString()
	entry.Active = true
	copied := *entry
	r.entries[strings.Join([]string{entry.StudentID, entry.FacultyID, entry.CourseCode}, "|")] = &copied
	return nil
}

func (r *feedbackRepoStub) ListActive(ctx context.Context, facultyID, courseCode string) ([]models.FeedbackEntry, error) {
	var result []models.FeedbackEntry
	for _, entry := range r.entries {
		if entry.FacultyID == facultyID && entry.CourseCode == courseCode && entry.Active {
			result = append(result, *entry)
		}
	}
	return result, nil
}

type statsCacheStub struct {
	values  map[string]models.FeedbackStatistics
	deleted []string
	setErr  error
}

func newStatsCacheStub() *statsCacheStub {
	return &statsCacheStub{values: map[string]models.FeedbackStatistics{}}
}

func (c *statsCacheStub) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	value, ok := c.values[key]
	if !ok {
		return false, nil
	}
	*(dest.(*models.FeedbackStatistics)) = value
	return true, nil
}

func (c *statsCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.values[key] = value.(models.FeedbackStatistics)
	return nil
}

func (c *statsCacheStub) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	delete(c.values, key)
	return nil
}

type configStoreStub struct {
	items map[string]models.Configuration
	err   error
}

func (s *configStoreStub) Get(ctx context.Context, key string) (*models.Configuration, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.items[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &cfg, nil
}

func (s *configStoreStub) Upsert(ctx context.Context, cfg *models.Configuration) error {
	if s.err != nil {
		return s.err
	}
	if s.items == nil {
		s.items = map[string]models.Configuration{}
	}
	cfg.UpdatedAt = time.Now().UTC()
	s.items[cfg.Key] = *cfg
	return nil
}

type auditStub struct {
	entries []models.AuditLog
	err     error
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, *log)
	return nil
}

var errStoreDown = errors.New("store unavailable")

func adminActor() *models.JWTClaims {
	return &models.JWTClaims{UserID: "A1", Role: models.RoleAdmin}
}

func facultyActor(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleFaculty}
}
