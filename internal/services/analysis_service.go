package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aptitude-portal/timing-analytics-service/internal/cache"
	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
	"github.com/aptitude-portal/timing-analytics-service/internal/repositories"
)

const (
	// DefaultSuspiciousLimit caps the suspicious list; it is also the
	// hard maximum regardless of what the caller asks for.
	DefaultSuspiciousLimit = 100

	// DefaultVisualizationTTL bounds cached report bundles when no TTL
	// is configured.
	DefaultVisualizationTTL = 5 * time.Minute
)

// ===== REPORT DTOs =====

// VisualizationBundle is the dashboard payload: the three aggregate
// shapes computed over one scope in a single ledger pass.
type VisualizationBundle struct {
	VennData         *VennCounts            `json:"vennData"`
	CategoryData     []CategoryBreakdownRow `json:"categoryData"`
	TimeDistribution []TimeDistributionRow  `json:"timeDistribution"`
}

// SuspiciousResponseRow is one flagged answer in the review queue.
type SuspiciousResponseRow struct {
	StudentID      string                `json:"student_id"`
	Username       string                `json:"username,omitempty"`
	QuestionID     uint                  `json:"question_id"`
	Category       string                `json:"category"`
	TimeTaken      float64               `json:"time_taken"`
	IdealTime      float64               `json:"ideal_time"`
	TimeRatio      float64               `json:"time_ratio"`
	SuspicionLevel models.SuspicionLevel `json:"suspicion_level"`
	AnsweredAt     time.Time             `json:"answered_at"`
}

// StudentInfo identifies a student selectable in the analysis UI.
type StudentInfo struct {
	StudentID string `json:"student_id"`
	Username  string `json:"username,omitempty"`
}

// AnalysisService is the read facade over the scoring and aggregation
// engines: everything the dashboard and admin review screens call.
type AnalysisService interface {
	StudentVisualization(ctx context.Context, studentID string) (*VisualizationBundle, error)
	PopulationVisualization(ctx context.Context) (*VisualizationBundle, error)
	SuspiciousList(ctx context.Context, limit int) ([]SuspiciousResponseRow, error)
	StudentPerformanceTable(ctx context.Context, sortBy, sortOrder string) ([]models.StudentPerformanceSummary, error)
	StudentsWithTimingData(ctx context.Context) ([]StudentInfo, error)
	Categories(ctx context.Context) ([]string, error)
}

type analysisService struct {
	ledgerReader
	aggregation AggregationService
	scoring     ScoringService
	cache       cache.CacheService
	cacheTTL    time.Duration
}

func NewAnalysisService(
	repo repositories.Repository,
	cls *classifier.Classifier,
	aggregation AggregationService,
	scoring ScoringService,
	cacheService cache.CacheService,
	logger *slog.Logger,
	timeout time.Duration,
	cacheTTL time.Duration,
) AnalysisService {
	if cacheTTL <= 0 {
		cacheTTL = DefaultVisualizationTTL
	}
	return &analysisService{
		ledgerReader: newLedgerReader(repo, cls, logger, timeout),
		aggregation:  aggregation,
		scoring:      scoring,
		cache:        cacheService,
		cacheTTL:     cacheTTL,
	}
}

// ===== CACHE KEYS =====

func visualizationCacheKey(scope Scope) string {
	if studentID, ok := scope.StudentID(); ok {
		return fmt.Sprintf("analytics:student:%s:visualization", studentID)
	}
	return "analytics:population:visualization"
}

func studentAnalyticsPattern(studentID string) string {
	return fmt.Sprintf("analytics:student:%s:*", studentID)
}

func populationAnalyticsPattern() string {
	return "analytics:population:*"
}

// ===== OPERATIONS =====

// StudentVisualization returns the three-part dashboard bundle for one
// student, served from cache when a fresh copy exists.
func (s *analysisService) StudentVisualization(ctx context.Context, studentID string) (*VisualizationBundle, error) {
	return s.visualization(ctx, StudentScope(studentID))
}

// PopulationVisualization returns the bundle across every student.
func (s *analysisService) PopulationVisualization(ctx context.Context) (*VisualizationBundle, error) {
	return s.visualization(ctx, PopulationScope())
}

func (s *analysisService) visualization(ctx context.Context, scope Scope) (*VisualizationBundle, error) {
	key := visualizationCacheKey(scope)

	if s.cache != nil {
		var cached VisualizationBundle
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Visualization cache read failed", "key", key, "error", err)
		}
	}

	bundle, err := s.buildVisualization(ctx, scope)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, bundle, s.cacheTTL); err != nil {
			s.logger.Warn("Visualization cache write failed", "key", key, "error", err)
		}
	}

	return bundle, nil
}

func (s *analysisService) buildVisualization(ctx context.Context, scope Scope) (*VisualizationBundle, error) {
	venn, err := s.aggregation.VennCounts(ctx, scope)
	if err != nil {
		return nil, err
	}

	categories, err := s.aggregation.CategoryBreakdown(ctx, scope)
	if err != nil {
		return nil, err
	}

	distribution, err := s.aggregation.TimeDistribution(ctx, scope)
	if err != nil {
		return nil, err
	}

	return &VisualizationBundle{
		VennData:         venn,
		CategoryData:     categories,
		TimeDistribution: distribution,
	}, nil
}

// SuspiciousList returns flagged answers across the population, most
// suspicious first (lowest time ratio). The limit defaults to and is
// capped at DefaultSuspiciousLimit.
func (s *analysisService) SuspiciousList(ctx context.Context, limit int) ([]SuspiciousResponseRow, error) {
	if limit <= 0 || limit > DefaultSuspiciousLimit {
		limit = DefaultSuspiciousLimit
	}

	events, err := s.classifiedFor(ctx, PopulationScope())
	if err != nil {
		return nil, err
	}

	rows := make([]SuspiciousResponseRow, 0)
	for _, ev := range events {
		if !ev.classification.SuspicionLevel.IsSuspicious() {
			continue
		}
		rows = append(rows, SuspiciousResponseRow{
			StudentID:      ev.response.StudentID,
			QuestionID:     ev.response.QuestionID,
			Category:       ev.response.Question.Category,
			TimeTaken:      ev.response.TimeTaken,
			IdealTime:      ev.response.Question.EffectiveIdealTime(),
			TimeRatio:      ev.classification.TimeRatio,
			SuspicionLevel: ev.classification.SuspicionLevel,
			AnsweredAt:     ev.response.CreatedAt,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TimeRatio != rows[j].TimeRatio {
			return rows[i].TimeRatio < rows[j].TimeRatio
		}
		if rows[i].StudentID != rows[j].StudentID {
			return rows[i].StudentID < rows[j].StudentID
		}
		return rows[i].QuestionID < rows[j].QuestionID
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}

	s.attachSuspiciousUsernames(ctx, rows)
	return rows, nil
}

func (s *analysisService) attachSuspiciousUsernames(ctx context.Context, rows []SuspiciousResponseRow) {
	if len(rows) == 0 {
		return
	}

	seen := make(map[string]struct{}, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.StudentID]; ok {
			continue
		}
		seen[row.StudentID] = struct{}{}
		ids = append(ids, row.StudentID)
	}

	lookupCtx, cancel := s.storageCtx(ctx)
	defer cancel()

	users, err := s.repo.User().GetByIDs(lookupCtx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve usernames for suspicious list", "error", err)
		return
	}

	byID := make(map[string]string, len(users))
	for _, user := range users {
		byID[user.ID] = user.Username
	}

	for i := range rows {
		rows[i].Username = byID[rows[i].StudentID]
	}
}

// performanceSortKeys is the fixed allowlist of sortable columns.
// Unknown keys fall back to the default rather than erroring, and the
// request value never reaches a query string.
var performanceSortKeys = map[string]func(a, b models.StudentPerformanceSummary) bool{
	"score": func(a, b models.StudentPerformanceSummary) bool {
		return a.Score < b.Score
	},
	"correct_answers": func(a, b models.StudentPerformanceSummary) bool {
		return a.CorrectAnswers < b.CorrectAnswers
	},
	"total_questions": func(a, b models.StudentPerformanceSummary) bool {
		return a.TotalQuestions < b.TotalQuestions
	},
	"avg_time_deviation": func(a, b models.StudentPerformanceSummary) bool {
		return a.AvgTimeDeviation < b.AvgTimeDeviation
	},
	"composite_score": func(a, b models.StudentPerformanceSummary) bool {
		return a.CompositeScore < b.CompositeScore
	},
	"time_taken": func(a, b models.StudentPerformanceSummary) bool {
		return a.TotalTimeTaken < b.TotalTimeTaken
	},
	"date": func(a, b models.StudentPerformanceSummary) bool {
		at, bt := time.Time{}, time.Time{}
		if a.LastActivityAt != nil {
			at = *a.LastActivityAt
		}
		if b.LastActivityAt != nil {
			bt = *b.LastActivityAt
		}
		return at.Before(bt)
	},
	"student_id": func(a, b models.StudentPerformanceSummary) bool {
		return a.StudentID < b.StudentID
	},
}

// StudentPerformanceTable returns every ranked student re-sorted by an
// allowlisted column. Default ordering is score descending.
func (s *analysisService) StudentPerformanceTable(ctx context.Context, sortBy, sortOrder string) ([]models.StudentPerformanceSummary, error) {
	summaries, err := s.scoring.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	less, ok := performanceSortKeys[sortBy]
	if !ok {
		less = performanceSortKeys["score"]
		sortOrder = "desc"
	}

	descending := sortOrder != "asc"
	sort.SliceStable(summaries, func(i, j int) bool {
		if descending {
			return less(summaries[j], summaries[i])
		}
		return less(summaries[i], summaries[j])
	})

	return summaries, nil
}

// StudentsWithTimingData lists students who have recorded responses.
// When the ledger is empty it falls back to the full roster so the
// selection UI is never blank on a fresh install.
func (s *analysisService) StudentsWithTimingData(ctx context.Context) ([]StudentInfo, error) {
	storeCtx, cancel := s.storageCtx(ctx)
	defer cancel()

	ids, err := s.repo.Response().StudentIDsWithResponses(storeCtx)
	if err != nil {
		return nil, storageError("list students with responses", err)
	}

	if len(ids) == 0 {
		users, err := s.repo.User().List(storeCtx)
		if err != nil {
			return nil, storageError("list users", err)
		}
		students := make([]StudentInfo, 0, len(users))
		for _, user := range users {
			students = append(students, StudentInfo{StudentID: user.ID, Username: user.Username})
		}
		return students, nil
	}

	users, err := s.repo.User().GetByIDs(storeCtx, ids)
	if err != nil {
		s.logger.Warn("Failed to resolve usernames for student list", "error", err)
		users = nil
	}

	byID := make(map[string]string, len(users))
	for _, user := range users {
		byID[user.ID] = user.Username
	}

	students := make([]StudentInfo, 0, len(ids))
	for _, id := range ids {
		students = append(students, StudentInfo{StudentID: id, Username: byID[id]})
	}
	return students, nil
}

// Categories lists every question category known to the bank, for the
// dashboard's filter controls.
func (s *analysisService) Categories(ctx context.Context) ([]string, error) {
	storeCtx, cancel := s.storageCtx(ctx)
	defer cancel()

	categories, err := s.repo.Question().ListCategories(storeCtx)
	if err != nil {
		return nil, storageError("list categories", err)
	}
	return categories, nil
}
