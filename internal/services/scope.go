package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
)

// Scope selects the response events an aggregation operates over:
// either one student's events or the full population's.
type Scope struct {
	studentID *string
}

func StudentScope(studentID string) Scope {
	return Scope{studentID: &studentID}
}

func PopulationScope() Scope {
	return Scope{}
}

// StudentID returns the scoped student and whether the scope is
// student-bound.
func (s Scope) StudentID() (string, bool) {
	if s.studentID == nil {
		return "", false
	}
	return *s.studentID, true
}

func (s Scope) String() string {
	if s.studentID == nil {
		return "population"
	}
	return "student:" + *s.studentID
}

// DefaultStorageTimeout bounds ledger calls when no timeout is
// configured; no engine operation may block indefinitely.
const DefaultStorageTimeout = 5 * time.Second

// classifiedEvent pairs a ledger row with its recomputed
// classification. Classification is derived on read, never trusted
// from storage, so ideal-time edits reflow into history.
type classifiedEvent struct {
	response       *models.Response
	classification models.TimingClassification
}

// ledgerReader is the shared read path for the scoring and aggregation
// engines: bounded-timeout ledger fetches plus per-event
// classification.
type ledgerReader struct {
	repo       repositories.Repository
	classifier *classifier.Classifier
	logger     *slog.Logger
	timeout    time.Duration
}

func newLedgerReader(repo repositories.Repository, cls *classifier.Classifier, logger *slog.Logger, timeout time.Duration) ledgerReader {
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}
	return ledgerReader{
		repo:       repo,
		classifier: cls,
		logger:     logger,
		timeout:    timeout,
	}
}

func (lr *ledgerReader) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, lr.timeout)
}

// responsesFor issues a fresh ledger query for the scope, joined with
// question metadata, ordered created_at ascending.
func (lr *ledgerReader) responsesFor(ctx context.Context, scope Scope) ([]*models.Response, error) {
	ctx, cancel := lr.storageCtx(ctx)
	defer cancel()

	if studentID, ok := scope.StudentID(); ok {
		responses, err := lr.repo.Response().ListByStudent(ctx, studentID)
		if err != nil {
			return nil, storageError("list responses by student", err)
		}
		return responses, nil
	}

	responses, err := lr.repo.Response().ListAll(ctx, repositories.ResponseFilters{})
	if err != nil {
		return nil, storageError("list all responses", err)
	}
	return responses, nil
}

// classifiedFor fetches and classifies the scope's events. Rows whose
// stored ideal time is non-positive cannot be classified; they are
// excluded from every aggregate (keeping all counts mutually
// consistent) and logged, never silently zeroed.
func (lr *ledgerReader) classifiedFor(ctx context.Context, scope Scope) ([]classifiedEvent, error) {
	responses, err := lr.responsesFor(ctx, scope)
	if err != nil {
		return nil, err
	}

	events := make([]classifiedEvent, 0, len(responses))
	for _, resp := range responses {
		result, err := lr.classifier.Classify(resp.TimeTaken, resp.Question.EffectiveIdealTime())
		if err != nil {
			lr.logger.Warn("Skipping unclassifiable response",
				"student_id", resp.StudentID,
				"question_id", resp.QuestionID,
				"error", err)
			continue
		}

		events = append(events, classifiedEvent{
			response: resp,
			classification: models.TimingClassification{
				StudentID:      resp.StudentID,
				QuestionID:     resp.QuestionID,
				TimeRatio:      result.TimeRatio,
				SuspicionLevel: result.Level,
			},
		})
	}

	return events, nil
}
