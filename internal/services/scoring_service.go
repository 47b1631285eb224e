package services

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
)

// ScoringService derives per-student performance summaries from the
// response ledger.
//
// Two metrics coexist and must not be conflated downstream:
//   - Score: percentage correct, 0-100.
//   - CompositeScore: sum over events of
//     is_correct * 1/(1+|time_taken-ideal_time|), rewarding answers
//     that are both correct and close to the ideal solving time. Used
//     for leaderboard ranking.
type ScoringService interface {
	ComputeStudentScore(ctx context.Context, studentID string) (*models.StudentPerformanceSummary, error)
	Leaderboard(ctx context.Context) ([]models.StudentPerformanceSummary, error)
}

type scoringService struct {
	ledgerReader
}

func NewScoringService(repo repositories.Repository, cls *classifier.Classifier, logger *slog.Logger, timeout time.Duration) ScoringService {
	return &scoringService{
		ledgerReader: newLedgerReader(repo, cls, logger, timeout),
	}
}

// ComputeStudentScore recomputes the student's summary on demand.
// Returns ErrNoResponses for an empty scope; the caller decides
// whether to surface that as 0 or "insufficient data".
func (s *scoringService) ComputeStudentScore(ctx context.Context, studentID string) (*models.StudentPerformanceSummary, error) {
	responses, err := s.responsesFor(ctx, StudentScope(studentID))
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, ErrNoResponses
	}

	summary := summarize(studentID, responses)
	return &summary, nil
}

// Leaderboard ranks every student with recorded responses by composite
// score, descending. Ties break on higher correct_answers, then lower
// avg_time_deviation, then student_id ascending for a stable order.
func (s *scoringService) Leaderboard(ctx context.Context) ([]models.StudentPerformanceSummary, error) {
	responses, err := s.responsesFor(ctx, PopulationScope())
	if err != nil {
		return nil, err
	}

	byStudent := make(map[string][]*models.Response)
	for _, resp := range responses {
		byStudent[resp.StudentID] = append(byStudent[resp.StudentID], resp)
	}

	summaries := make([]models.StudentPerformanceSummary, 0, len(byStudent))
	for studentID, studentResponses := range byStudent {
		summaries = append(summaries, summarize(studentID, studentResponses))
	}

	sort.Slice(summaries, func(i, j int) bool {
		return lessByComposite(summaries[i], summaries[j])
	})

	s.attachUsernames(ctx, summaries)
	return summaries, nil
}

// lessByComposite orders summaries for leaderboard display.
func lessByComposite(a, b models.StudentPerformanceSummary) bool {
	if a.CompositeScore != b.CompositeScore {
		return a.CompositeScore > b.CompositeScore
	}
	if a.CorrectAnswers != b.CorrectAnswers {
		return a.CorrectAnswers > b.CorrectAnswers
	}
	if a.AvgTimeDeviation != b.AvgTimeDeviation {
		return a.AvgTimeDeviation < b.AvgTimeDeviation
	}
	return a.StudentID < b.StudentID
}

// summarize folds one student's responses into a summary. Pure; callers
// guarantee all responses belong to studentID.
func summarize(studentID string, responses []*models.Response) models.StudentPerformanceSummary {
	summary := models.StudentPerformanceSummary{
		StudentID:      studentID,
		TotalQuestions: len(responses),
	}

	if len(responses) == 0 {
		return summary
	}

	var deviationSum float64
	var lastActivity time.Time

	for _, resp := range responses {
		deviation := math.Abs(resp.TimeTaken - resp.Question.EffectiveIdealTime())
		deviationSum += deviation
		summary.TotalTimeTaken += resp.TimeTaken

		if resp.IsCorrect {
			summary.CorrectAnswers++
			summary.CompositeScore += 1 / (1 + deviation)
		}

		if resp.CreatedAt.After(lastActivity) {
			lastActivity = resp.CreatedAt
		}
	}

	summary.Score = float64(summary.CorrectAnswers) / float64(summary.TotalQuestions) * 100
	summary.AvgTimeDeviation = deviationSum / float64(summary.TotalQuestions)
	if !lastActivity.IsZero() {
		summary.LastActivityAt = &lastActivity
	}

	return summary
}

// attachUsernames decorates summaries with display names. A roster
// miss is not fatal; the summary still carries the student ID.
func (s *scoringService) attachUsernames(ctx context.Context, summaries []models.StudentPerformanceSummary) {
	if len(summaries) == 0 {
		return
	}

	ids := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.StudentID)
	}

	lookupCtx, cancel := s.storageCtx(ctx)
	defer cancel()

	users, err := s.repo.User().GetByIDs(lookupCtx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve usernames for leaderboard", "error", err)
		return
	}

	byID := make(map[string]string, len(users))
	for _, user := range users {
		byID[user.ID] = user.Username
	}

	for i := range summaries {
		summaries[i].Username = byID[summaries[i].StudentID]
	}
}
