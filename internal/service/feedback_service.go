package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	"github.com/noah-isme/academic-lifecycle-api/pkg/cache"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type feedbackRepository interface {
	Exists(ctx context.Context, studentID, facultyID, courseCode string) (bool, error)
	Upsert(ctx context.Context, entry *models.FeedbackEntry) error
	ListActive(ctx context.Context, facultyID, courseCode string) ([]models.FeedbackEntry, error)
}

type feedbackCatalog interface {
	GetCourse(ctx context.Context, code string) (*models.Course, error)
	GetStudent(ctx context.Context, id string) (*models.Student, error)
	GetFaculty(ctx context.Context, id string) (*models.Faculty, error)
	OfferingExists(ctx context.Context, facultyID, courseCode string) (bool, error)
}

type feedbackToggle interface {
	Enabled() bool
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SubmitFeedbackPayload is a student's feedback for a faculty/course pair.
type SubmitFeedbackPayload struct {
	FacultyID  string                  `json:"faculty_id" validate:"required"`
	CourseCode string                  `json:"course_code" validate:"required"`
	Ratings    []models.FeedbackRating `json:"ratings"`
	Comments   string                  `json:"comments" validate:"max=2000"`
}

// FeedbackService records feedback and serves aggregated statistics.
type FeedbackService struct {
	repo        feedbackRepository
	catalog     feedbackCatalog
	enrollments enrollmentChecker
	settings    feedbackToggle
	cache       statsCache
	cacheTTL    time.Duration
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewFeedbackService constructs FeedbackService.
func NewFeedbackService(repo feedbackRepository, catalog feedbackCatalog, enrollments enrollmentChecker, settings feedbackToggle, cache statsCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		repo:        repo,
		catalog:     catalog,
		enrollments: enrollments,
		settings:    settings,
		cache:       cache,
		cacheTTL:    cacheTTL,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// SubmitFeedback stores a single feedback entry for an enrolled student.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, studentID string, req SubmitFeedbackPayload) (*models.FeedbackEntry, error) {
	if !s.settings.Enabled() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "feedback submission is disabled")
	}
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	ratings, err := normaliseRatings(req.Ratings)
	if err != nil {
		return nil, err
	}

	if _, err := s.catalog.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetFaculty(ctx, req.FacultyID); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetCourse(ctx, req.CourseCode); err != nil {
		return nil, err
	}
	offered, err := s.catalog.OfferingExists(ctx, req.FacultyID, req.CourseCode)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty does not teach course")
	}
	enrolled, err := s.enrollments.Exists(ctx, studentID, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "not enrolled in course")
	}
	exists, err := s.repo.Exists(ctx, studentID, req.FacultyID, req.CourseCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check feedback")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
	}

	entry := &models.FeedbackEntry{
		StudentID:  studentID,
		FacultyID:  req.FacultyID,
		CourseCode: req.CourseCode,
		Ratings:    ratings,
		Comments:   strings.TrimSpace(req.Comments),
	}
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save feedback")
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cache.FeedbackStatsKey(req.FacultyID, req.CourseCode)); err != nil {
			s.logger.Warn("failed to invalidate feedback statistics", zap.String("faculty_id", req.FacultyID), zap.String("course_code", req.CourseCode), zap.Error(err))
		}
	}
	s.metrics.RecordTransition(WorkflowFeedback, "submitted")
	s.logger.Info("feedback submitted", zap.String("faculty_id", req.FacultyID), zap.String("course_code", req.CourseCode))
	return entry, nil
}

// GetStatistics returns aggregated feedback for a faculty/course pair.
func (s *FeedbackService) GetStatistics(ctx context.Context, facultyID, courseCode string) (*models.FeedbackStatistics, bool, error) {
	if facultyID == "" || courseCode == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "faculty id and course code are required")
	}
	key := cache.FeedbackStatsKey(facultyID, courseCode)
	if s.cache != nil {
		var cached models.FeedbackStatistics
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	if _, err := s.catalog.GetFaculty(ctx, facultyID); err != nil {
		return nil, false, err
	}
	if _, err := s.catalog.GetCourse(ctx, courseCode); err != nil {
		return nil, false, err
	}
	entries, err := s.repo.ListActive(ctx, facultyID, courseCode)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load feedback")
	}
	stats := BuildFeedbackStatistics(facultyID, courseCode, entries)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, stats, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache feedback statistics", zap.String("faculty_id", facultyID), zap.String("course_code", courseCode), zap.Error(err))
		}
	}
	return &stats, false, nil
}

// normaliseRatings rejects empty, unknown or repeated questions and clamps
// each rating to [1,5].
func normaliseRatings(ratings []models.FeedbackRating) (models.FeedbackRatings, error) {
	if len(ratings) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ratings are required")
	}
	seen := make(map[string]struct{}, len(ratings))
	normalised := make(models.FeedbackRatings, 0, len(ratings))
	for _, rating := range ratings {
		id := strings.ToUpper(strings.TrimSpace(rating.QuestionID))
		if !IsKnownQuestion(id) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown question %q", rating.QuestionID))
		}
		if _, dup := seen[id]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate question %q", id))
		}
		seen[id] = struct{}{}
		normalised = append(normalised, models.FeedbackRating{QuestionID: id, Rating: ClampRating(rating.Rating)})
	}
	return normalised, nil
}
