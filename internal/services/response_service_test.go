package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/events"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/validator"
)

func newResponseFixture(t *testing.T) (*mockRepository, *events.MockEventPublisher, ResponseService) {
	t.Helper()
	repo := newMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewResponseService(repo, classifier.NewDefault(), validator.New(), publisher, nil, testLogger(), time.Second)
	return repo, publisher, svc
}

func validRecordRequest() RecordResponseRequest {
	return RecordResponseRequest{
		StudentID:      "student-1",
		QuestionID:     42,
		SelectedOption: "A",
		TimeTaken:      10,
	}
}

func TestRecordResponse(t *testing.T) {
	repo, publisher, svc := newResponseFixture(t)

	question := testQuestion(42, "Math", 60)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(&models.User{ID: "student-1"}, nil)
	repo.questions.On("GetByID", mock.Anything, uint(42)).Return(question, nil)
	repo.responses.On("Record", mock.Anything, mock.AnythingOfType("*models.Response")).Return(nil)

	result, err := svc.RecordResponse(context.Background(), validRecordRequest())
	require.NoError(t, err)

	assert.Equal(t, "student-1", result.StudentID)
	assert.Equal(t, uint(42), result.QuestionID)
	assert.True(t, result.IsCorrect)
	assert.InDelta(t, 10.0/60, result.TimeRatio, 1e-9)
	assert.Equal(t, models.HighlySuspicious, result.SuspicionLevel)
	assert.True(t, result.IsSuspicious)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventResponseClassified, published[0].Type)
}

func TestRecordResponse_WrongAnswerStillRecorded(t *testing.T) {
	repo, _, svc := newResponseFixture(t)

	question := testQuestion(42, "Math", 60)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(&models.User{ID: "student-1"}, nil)
	repo.questions.On("GetByID", mock.Anything, uint(42)).Return(question, nil)
	repo.responses.On("Record", mock.Anything, mock.AnythingOfType("*models.Response")).Return(nil)

	req := validRecordRequest()
	req.SelectedOption = "C"
	req.TimeTaken = 55

	result, err := svc.RecordResponse(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.IsCorrect)
	assert.Equal(t, models.SuspicionNormal, result.SuspicionLevel)
	assert.False(t, result.IsSuspicious)
}

func TestRecordResponse_ValidationFailure(t *testing.T) {
	_, publisher, svc := newResponseFixture(t)

	req := validRecordRequest()
	req.StudentID = ""
	req.TimeTaken = -3

	_, err := svc.RecordResponse(context.Background(), req)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestRecordResponse_StudentNotFound(t *testing.T) {
	repo, _, svc := newResponseFixture(t)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.RecordResponse(context.Background(), validRecordRequest())
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestRecordResponse_QuestionNotFound(t *testing.T) {
	repo, _, svc := newResponseFixture(t)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(&models.User{ID: "student-1"}, nil)
	repo.questions.On("GetByID", mock.Anything, uint(42)).Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.RecordResponse(context.Background(), validRecordRequest())
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestRecordResponse_Duplicate(t *testing.T) {
	repo, publisher, svc := newResponseFixture(t)

	question := testQuestion(42, "Math", 60)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(&models.User{ID: "student-1"}, nil)
	repo.questions.On("GetByID", mock.Anything, uint(42)).Return(question, nil)
	repo.responses.On("Record", mock.Anything, mock.AnythingOfType("*models.Response")).Return(gorm.ErrDuplicatedKey)

	_, err := svc.RecordResponse(context.Background(), validRecordRequest())
	assert.ErrorIs(t, err, ErrDuplicateResponse)
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestRecordResponse_MalformedQuestionRejected(t *testing.T) {
	repo, _, svc := newResponseFixture(t)

	bad := testQuestion(42, "Math", 0)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(&models.User{ID: "student-1"}, nil)
	repo.questions.On("GetByID", mock.Anything, uint(42)).Return(bad, nil)

	_, err := svc.RecordResponse(context.Background(), validRecordRequest())
	assert.ErrorIs(t, err, ErrInvalidIdealTime)
	repo.responses.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestStudentResponses(t *testing.T) {
	repo, _, svc := newResponseFixture(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	question := testQuestion(42, "Math", 60)
	repo.users.On("GetByID", mock.Anything, "student-1").Return(&models.User{ID: "student-1"}, nil)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(
		[]*models.Response{testResponse("student-1", question, 15, true, base)}, nil)

	rows, err := svc.StudentResponses(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, uint(42), rows[0].QuestionID)
	assert.Equal(t, "Math", rows[0].Category)
	assert.InDelta(t, 0.25, rows[0].TimeRatio, 1e-9)
	assert.Equal(t, models.HighlySuspicious, rows[0].SuspicionLevel)
	assert.Equal(t, base, rows[0].AnsweredAt)
}

func TestStudentResponses_UnknownStudent(t *testing.T) {
	repo, _, svc := newResponseFixture(t)
	repo.users.On("GetByID", mock.Anything, "ghost").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.StudentResponses(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}
