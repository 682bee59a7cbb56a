package service

import (
	"context"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

type completedCourseLister interface {
	ListCompletedCredit(ctx context.Context, studentID string) ([]models.CompletedCourse, error)
}

type studentGetter interface {
	GetStudent(ctx context.Context, id string) (*models.Student, error)
}

// PerformanceService derives SPI/CPI on demand.
type PerformanceService struct {
	enrollments completedCourseLister
	students    studentGetter
}

// NewPerformanceService constructs PerformanceService.
func NewPerformanceService(enrollments completedCourseLister, students studentGetter) *PerformanceService {
	return &PerformanceService{enrollments: enrollments, students: students}
}

// GetPerformance returns the per-semester SPI and running CPI of a student.
func (s *PerformanceService) GetPerformance(ctx context.Context, studentID string) ([]models.SemesterPerformance, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if _, err := s.students.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}
	courses, err := s.enrollments.ListCompletedCredit(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed courses")
	}
	return ComputePerformance(courses), nil
}
