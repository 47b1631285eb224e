package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/aptitude-portal/timing-analytics-service/internal/cache"
	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/events"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
	"github.com/aptitude-portal/timing-analytics-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type RecordResponseRequest struct {
	StudentID      string  `json:"student_id" validate:"required,max=255"`
	QuestionID     uint    `json:"question_id" validate:"required"`
	SelectedOption string  `json:"selected_option" validate:"required"`
	TimeTaken      float64 `json:"time_taken" validate:"min=0"`
}

// RecordResponseResult is the timing verdict returned to the caller
// immediately after a response lands in the ledger.
type RecordResponseResult struct {
	ResponseID     uint                  `json:"response_id"`
	StudentID      string                `json:"student_id"`
	QuestionID     uint                  `json:"question_id"`
	IsCorrect      bool                  `json:"is_correct"`
	TimeTaken      float64               `json:"time_taken"`
	TimeRatio      float64               `json:"time_ratio"`
	SuspicionLevel models.SuspicionLevel `json:"suspicion_level"`
	IsSuspicious   bool                  `json:"is_suspicious"`
	RecordedAt     time.Time             `json:"recorded_at"`
}

// StudentResponseRow is one line of a student's result sheet.
type StudentResponseRow struct {
	QuestionID     uint                  `json:"question_id"`
	QuestionText   string                `json:"question_text"`
	Category       string                `json:"category"`
	SelectedOption string                `json:"selected_option"`
	CorrectOption  string                `json:"correct_option"`
	IsCorrect      bool                  `json:"is_correct"`
	TimeTaken      float64               `json:"time_taken"`
	IdealTime      float64               `json:"ideal_time"`
	TimeRatio      float64               `json:"time_ratio"`
	SuspicionLevel models.SuspicionLevel `json:"suspicion_level"`
	AnsweredAt     time.Time             `json:"answered_at"`
}

// ResponseService owns the write path of the ledger: validating,
// correctness-marking, classifying, and persisting incoming answers.
type ResponseService interface {
	RecordResponse(ctx context.Context, req RecordResponseRequest) (*RecordResponseResult, error)
	StudentResponses(ctx context.Context, studentID string) ([]StudentResponseRow, error)
}

type responseService struct {
	ledgerReader
	validator *validator.Validator
	publisher events.EventPublisher
	cache     cache.CacheService
}

func NewResponseService(
	repo repositories.Repository,
	cls *classifier.Classifier,
	v *validator.Validator,
	publisher events.EventPublisher,
	cacheService cache.CacheService,
	logger *slog.Logger,
	timeout time.Duration,
) ResponseService {
	return &responseService{
		ledgerReader: newLedgerReader(repo, cls, logger, timeout),
		validator:    v,
		publisher:    publisher,
		cache:        cacheService,
	}
}

// RecordResponse runs the full record pipeline: validate the request,
// resolve student and question, mark correctness against the stored
// answer, classify the timing, and insert exactly one ledger row. The
// insert is a single atomic statement; two concurrent submissions for
// the same (student, question) pair cannot both succeed.
func (s *responseService) RecordResponse(ctx context.Context, req RecordResponseRequest) (*RecordResponseResult, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, validator.ToValidationErrors(err)
	}

	storeCtx, cancel := s.storageCtx(ctx)
	defer cancel()

	if _, err := s.repo.User().GetByID(storeCtx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, req.StudentID)
		}
		return nil, storageError("get student", err)
	}

	question, err := s.repo.Question().GetByID(storeCtx, req.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrQuestionNotFound, req.QuestionID)
		}
		return nil, storageError("get question", err)
	}

	// Classify before insert so a malformed question rejects the
	// submission instead of poisoning the ledger.
	result, err := s.classifier.Classify(req.TimeTaken, question.EffectiveIdealTime())
	if err != nil {
		return nil, fmt.Errorf("classify response timing: %w", err)
	}

	response := &models.Response{
		StudentID:      req.StudentID,
		QuestionID:     req.QuestionID,
		SelectedOption: req.SelectedOption,
		TimeTaken:      req.TimeTaken,
		IsCorrect:      req.SelectedOption == question.CorrectOption,
	}

	if err := s.repo.Response().Record(storeCtx, response); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: student %s, question %d",
				ErrDuplicateResponse, req.StudentID, req.QuestionID)
		}
		return nil, storageError("record response", err)
	}

	s.invalidateAnalytics(ctx, req.StudentID)
	s.publishClassified(ctx, response, question, result)

	return &RecordResponseResult{
		ResponseID:     response.ID,
		StudentID:      response.StudentID,
		QuestionID:     response.QuestionID,
		IsCorrect:      response.IsCorrect,
		TimeTaken:      response.TimeTaken,
		TimeRatio:      result.TimeRatio,
		SuspicionLevel: result.Level,
		IsSuspicious:   result.Level.IsSuspicious(),
		RecordedAt:     response.CreatedAt,
	}, nil
}

// StudentResponses returns the student's full result sheet in answer
// order, each row carrying its live timing classification.
func (s *responseService) StudentResponses(ctx context.Context, studentID string) ([]StudentResponseRow, error) {
	storeCtx, cancel := s.storageCtx(ctx)
	defer cancel()

	if _, err := s.repo.User().GetByID(storeCtx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStudentNotFound, studentID)
		}
		return nil, storageError("get student", err)
	}

	classified, err := s.classifiedFor(ctx, StudentScope(studentID))
	if err != nil {
		return nil, err
	}

	rows := make([]StudentResponseRow, 0, len(classified))
	for _, ev := range classified {
		resp := ev.response
		rows = append(rows, StudentResponseRow{
			QuestionID:     resp.QuestionID,
			QuestionText:   resp.Question.Text,
			Category:       resp.Question.Category,
			SelectedOption: resp.SelectedOption,
			CorrectOption:  resp.Question.CorrectOption,
			IsCorrect:      resp.IsCorrect,
			TimeTaken:      resp.TimeTaken,
			IdealTime:      resp.Question.EffectiveIdealTime(),
			TimeRatio:      ev.classification.TimeRatio,
			SuspicionLevel: ev.classification.SuspicionLevel,
			AnsweredAt:     resp.CreatedAt,
		})
	}

	return rows, nil
}

// invalidateAnalytics drops cached report bundles that the new ledger
// row makes stale. Cache failures are logged and swallowed; the write
// already succeeded.
func (s *responseService) invalidateAnalytics(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}

	patterns := []string{
		studentAnalyticsPattern(studentID),
		populationAnalyticsPattern(),
	}
	for _, pattern := range patterns {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			s.logger.Warn("Failed to invalidate analytics cache",
				"pattern", pattern,
				"error", err)
		}
	}
}

// publishClassified emits the classification verdict downstream.
// Publish failures never fail the record; the ledger row is already
// durable.
func (s *responseService) publishClassified(ctx context.Context, response *models.Response, question *models.Question, result classifier.Result) {
	if s.publisher == nil {
		return
	}

	event := events.NewResponseClassifiedEvent(events.ResponseClassifiedEvent{
		ResponseID:     response.ID,
		StudentID:      response.StudentID,
		QuestionID:     response.QuestionID,
		Category:       question.Category,
		TimeTaken:      response.TimeTaken,
		TimeRatio:      result.TimeRatio,
		SuspicionLevel: result.Level,
		IsCorrect:      response.IsCorrect,
		RecordedAt:     response.CreatedAt,
	})

	if err := s.publisher.PublishAnalyticsEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish classification event",
			"event_id", event.ID,
			"student_id", response.StudentID,
			"question_id", response.QuestionID,
			"error", err)
	}
}
