package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academic-lifecycle-api/internal/models"
	appErrors "github.com/noah-isme/academic-lifecycle-api/pkg/errors"
)

func newEnrollmentFixture() (*EnrollmentService, *academicStore, *auditStub) {
	store := newAcademicStore()
	audit := &auditStub{}
	svc := NewEnrollmentService(store, store, newCatalogStub(), audit, nil, nil, nil)
	return svc, store, audit
}

func TestEnrollmentRequestThenApprove(t *testing.T) {
	svc, store, audit := newEnrollmentFixture()
	ctx := context.Background()

	req, err := svc.RequestRegistration(ctx, "B1", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "credit", Semester: "1"})
	require.NoError(t, err)
	assert.Equal(t, models.CreditOrAuditCredit, req.CreditOrAudit)

	result, err := svc.ApproveRegistrations(ctx, "CS101", RegistrationDecisionPayload{StudentIDs: []string{"B1"}}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, result.Approved)
	assert.Empty(t, result.Failed)

	enrollment, err := store.FindByStudentAndCourse(ctx, "B1", "CS101")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusApproved, enrollment.Status)
	assert.Equal(t, "1", enrollment.Semester)
	assert.False(t, enrollment.IsCompleted)
	assert.Empty(t, store.requests)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionRegistrationApprove, audit.entries[0].Action)
}

func TestRequestRegistrationErrors(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()
	ctx := context.Background()

	_, err := svc.RequestRegistration(ctx, "B1", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "PASS", Semester: "1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.RequestRegistration(ctx, "B1", RegistrationRequestPayload{CourseCode: "XX999", CreditOrAudit: "AUDIT", Semester: "1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.RequestRegistration(ctx, "ZZ", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "AUDIT", Semester: "1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.RequestRegistration(ctx, "B1", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "AUDIT", Semester: "1"})
	require.NoError(t, err)
	_, err = svc.RequestRegistration(ctx, "B1", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "AUDIT", Semester: "1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))

	store.enroll("B2", "CS101", "1")
	_, err = svc.RequestRegistration(ctx, "B2", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "CREDIT", Semester: "1"})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
}

func TestApproveRegistrationsFold(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()
	ctx := context.Background()
	store.maxIntake["CS101"] = 1

	for _, id := range []string{"B1", "B2"} {
		_, err := svc.RequestRegistration(ctx, id, RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "CREDIT", Semester: "1"})
		require.NoError(t, err)
	}

	result, err := svc.ApproveRegistrations(ctx, "CS101", RegistrationDecisionPayload{StudentIDs: []string{"B1", "B2", "B3"}}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, result.Approved)
	assert.Equal(t, []string{"B3"}, result.Skipped)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "B2", result.Failed[0].StudentID)
	assert.Equal(t, "course intake is full", result.Failed[0].Reason)

	again, err := svc.ApproveRegistrations(ctx, "CS101", RegistrationDecisionPayload{StudentIDs: []string{"B1"}}, adminActor())
	require.NoError(t, err)
	assert.Empty(t, again.Approved)
	assert.Equal(t, []string{"B1"}, again.Skipped)

	enrollments, err := svc.ListStudentEnrollments(ctx, "B1")
	require.NoError(t, err)
	assert.Len(t, enrollments, 1)
}

func TestApproveRegistrationsUnknownCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.ApproveRegistrations(context.Background(), "XX999", RegistrationDecisionPayload{StudentIDs: []string{"B1"}}, adminActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	_, err = svc.ApproveRegistrations(context.Background(), "CS101", RegistrationDecisionPayload{}, adminActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestRejectAndCancelRegistrations(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()
	ctx := context.Background()

	for _, id := range []string{"B1", "B2"} {
		_, err := svc.RequestRegistration(ctx, id, RegistrationRequestPayload{CourseCode: "MA101", CreditOrAudit: "CREDIT", Semester: "2"})
		require.NoError(t, err)
	}

	result, err := svc.RejectRegistrations(ctx, "MA101", RegistrationDecisionPayload{StudentIDs: []string{"B1", "B3"}}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, result.Rejected)
	assert.Equal(t, []string{"B3"}, result.Skipped)

	require.NoError(t, svc.CancelRegistration(ctx, "B2", "MA101"))
	err = svc.CancelRegistration(ctx, "B2", "MA101")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	pending, err := svc.ListPendingRegistrations(ctx, "MA101")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestPostGrade(t *testing.T) {
	svc, store, audit := newEnrollmentFixture()
	ctx := context.Background()
	store.enroll("B1", "CS101", "1")

	_, err := svc.PostGrade(ctx, "CS101", "B1", "A+", adminActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = svc.PostGrade(ctx, "CS101", "B2", models.GradeAA, adminActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	enrollment, err := svc.PostGrade(ctx, "CS101", "B1", "ab", adminActor())
	require.NoError(t, err)
	require.NotNil(t, enrollment.Grade)
	assert.Equal(t, models.GradeAB, *enrollment.Grade)
	assert.True(t, enrollment.IsCompleted)

	_, err = svc.PostGrade(ctx, "CS101", "B1", models.GradeAA, adminActor())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))

	stored, err := store.FindByStudentAndCourse(ctx, "B1", "CS101")
	require.NoError(t, err)
	assert.Equal(t, models.GradeAB, *stored.Grade)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionGradePost, audit.entries[0].Action)
}

func TestPostGradesBatch(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()
	ctx := context.Background()
	store.enroll("B1", "CS101", "1")
	store.enroll("B2", "CS101", "1")

	payload := PostGradesPayload{Grades: []models.GradeEntry{
		{StudentID: "B1", Grade: models.GradeAA},
		{StudentID: "B2", Grade: "ZZ"},
		{StudentID: "B3", Grade: models.GradeBB},
	}}

	_, err := svc.PostGrades(ctx, "CS101", payload, facultyActor("F2"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	result, err := svc.PostGrades(ctx, "CS101", payload, facultyActor("F1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B1"}, result.Graded)
	require.Len(t, result.Failed, 2)
	assert.Equal(t, "invalid grade", result.Failed[0].Reason)
	assert.Equal(t, "enrollment not found", result.Failed[1].Reason)
}

func TestRequestRegistrationStoreFailure(t *testing.T) {
	svc, store, _ := newEnrollmentFixture()
	store.err = errStoreDown

	_, err := svc.RequestRegistration(context.Background(), "B1", RegistrationRequestPayload{CourseCode: "CS101", CreditOrAudit: "CREDIT", Semester: "1"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal))
	assert.ErrorIs(t, err, errStoreDown)
}
