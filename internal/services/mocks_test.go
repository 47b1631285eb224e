package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
)

// MockResponseRepository is a mock implementation of ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Record(ctx context.Context, response *models.Response) error {
	args := m.Called(ctx, response)
	return args.Error(0)
}

func (m *MockResponseRepository) ListByStudent(ctx context.Context, studentID string) ([]*models.Response, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Response), args.Error(1)
}

func (m *MockResponseRepository) ListAll(ctx context.Context, filters repositories.ResponseFilters) ([]*models.Response, error) {
	args := m.Called(ctx, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Response), args.Error(1)
}

func (m *MockResponseRepository) StudentIDsWithResponses(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Question), args.Error(1)
}

func (m *MockQuestionRepository) ListCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// mockRepository bundles the three mocks behind the Repository interface
type mockRepository struct {
	responses *MockResponseRepository
	questions *MockQuestionRepository
	users     *MockUserRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		responses: new(MockResponseRepository),
		questions: new(MockQuestionRepository),
		users:     new(MockUserRepository),
	}
}

func (m *mockRepository) Response() repositories.ResponseRepository { return m.responses }
func (m *mockRepository) Question() repositories.QuestionRepository { return m.questions }
func (m *mockRepository) User() repositories.UserRepository         { return m.users }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testQuestion builds a question with the given ideal time in seconds.
func testQuestion(id uint, category string, idealTime int) *models.Question {
	return &models.Question{
		ID:            id,
		Text:          "placeholder",
		CorrectOption: "A",
		IdealTime:     &idealTime,
		Category:      category,
		Difficulty:    models.DifficultyMedium,
	}
}

// testResponse builds a ledger row joined with its question.
func testResponse(studentID string, question *models.Question, timeTaken float64, correct bool, answeredAt time.Time) *models.Response {
	return &models.Response{
		ID:             question.ID,
		StudentID:      studentID,
		QuestionID:     question.ID,
		SelectedOption: "A",
		TimeTaken:      timeTaken,
		IsCorrect:      correct,
		CreatedAt:      answeredAt,
		Question:       *question,
	}
}
