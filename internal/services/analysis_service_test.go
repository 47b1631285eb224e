package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aptitude-portal/timing-analytics-service/internal/cache"
	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
)

// memoryCache is a map-backed CacheService for testing cache behavior
// without a Redis instance.
type memoryCache struct {
	entries map[string][]byte
	sets    int
	hits    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	c.sets++
	return nil
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := c.entries[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	delete(c.entries, key)
	return nil
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.entries = make(map[string][]byte)
	return nil
}

func newAnalysisFixture(t *testing.T, cacheService cache.CacheService) (*mockRepository, AnalysisService) {
	t.Helper()
	repo := newMockRepository()
	cls := classifier.NewDefault()
	logger := testLogger()

	aggregation := NewAggregationService(repo, cls, logger, time.Second)
	scoring := NewScoringService(repo, cls, logger, time.Second)
	svc := NewAnalysisService(repo, cls, aggregation, scoring, cacheService, logger, time.Second, time.Minute)
	return repo, svc
}

func TestStudentVisualization(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(mixedLedger(), nil)

	bundle, err := svc.StudentVisualization(context.Background(), "student-1")
	require.NoError(t, err)

	require.NotNil(t, bundle.VennData)
	assert.Equal(t, 10, bundle.VennData.TotalAnswers)
	assert.Len(t, bundle.CategoryData, 2)
	assert.Len(t, bundle.TimeDistribution, 3)
}

func TestStudentVisualization_ServesFromCache(t *testing.T) {
	memCache := newMemoryCache()
	repo, svc := newAnalysisFixture(t, memCache)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(mixedLedger(), nil)

	first, err := svc.StudentVisualization(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 1, memCache.sets)

	second, err := svc.StudentVisualization(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 1, memCache.hits)
	assert.Equal(t, first.VennData, second.VennData)

	// Three ledger reads for the first build, none for the cached one.
	repo.responses.AssertNumberOfCalls(t, "ListByStudent", 3)
}

func TestPopulationVisualization_EmptyLedger(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return([]*models.Response{}, nil)

	bundle, err := svc.PopulationVisualization(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &VennCounts{}, bundle.VennData)
	assert.Empty(t, bundle.CategoryData)
	assert.Empty(t, bundle.TimeDistribution)
}

func TestSuspiciousList_OrderingAndLimit(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q := testQuestion(1, "Math", 60)

	responses := []*models.Response{
		testResponse("carol", q, 30, true, base),   // ratio 0.5, moderately
		testResponse("alice", q, 6, true, base),    // ratio 0.1, highly
		testResponse("bob", q, 12, true, base),     // ratio 0.2, highly
		testResponse("dave", q, 60, true, base),    // ratio 1.0, normal
		testResponse("erin", q, 6, true, base),     // ratio 0.1, ties with alice
	}
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return(responses, nil)
	repo.users.On("GetByIDs", mock.Anything, mock.Anything).Return([]*models.User{
		{ID: "alice", Username: "alice.w"},
	}, nil)

	rows, err := svc.SuspiciousList(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Lowest ratio first; equal ratios fall back to student_id.
	assert.Equal(t, "alice", rows[0].StudentID)
	assert.Equal(t, "alice.w", rows[0].Username)
	assert.Equal(t, "erin", rows[1].StudentID)
	assert.Equal(t, "bob", rows[2].StudentID)
	assert.Equal(t, models.HighlySuspicious, rows[0].SuspicionLevel)
}

func TestSuspiciousList_ExcludesNormal(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q := testQuestion(1, "Math", 60)
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return(
		[]*models.Response{testResponse("dave", q, 60, true, base)}, nil)

	rows, err := svc.SuspiciousList(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSuspiciousList_CapsLimit(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q := testQuestion(1, "Math", 60)

	responses := make([]*models.Response, 0, 150)
	for i := 0; i < 150; i++ {
		resp := testResponse("student", q, 6, true, base)
		resp.StudentID = resp.StudentID + "-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		responses = append(responses, resp)
	}
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return(responses, nil)
	repo.users.On("GetByIDs", mock.Anything, mock.Anything).Return([]*models.User{}, nil)

	rows, err := svc.SuspiciousList(context.Background(), 500)
	require.NoError(t, err)
	assert.Len(t, rows, DefaultSuspiciousLimit)
}

func TestStudentPerformanceTable_SortAllowlist(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q1 := testQuestion(1, "Math", 60)
	q2 := testQuestion(2, "Logic", 60)

	responses := []*models.Response{
		testResponse("alice", q1, 60, true, base),
		testResponse("alice", q2, 60, true, base.Add(time.Minute)),
		testResponse("bob", q1, 60, true, base),
		testResponse("bob", q2, 60, false, base.Add(time.Minute)),
	}
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return(responses, nil)
	repo.users.On("GetByIDs", mock.Anything, mock.Anything).Return([]*models.User{}, nil)

	byScoreAsc, err := svc.StudentPerformanceTable(context.Background(), "score", "asc")
	require.NoError(t, err)
	require.Len(t, byScoreAsc, 2)
	assert.Equal(t, "bob", byScoreAsc[0].StudentID)
	assert.Equal(t, "alice", byScoreAsc[1].StudentID)

	byCorrectDesc, err := svc.StudentPerformanceTable(context.Background(), "correct_answers", "desc")
	require.NoError(t, err)
	assert.Equal(t, "alice", byCorrectDesc[0].StudentID)
}

func TestStudentPerformanceTable_UnknownSortFallsBack(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q := testQuestion(1, "Math", 60)
	responses := []*models.Response{
		testResponse("alice", q, 60, true, base),
		testResponse("bob", q, 60, false, base),
	}
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return(responses, nil)
	repo.users.On("GetByIDs", mock.Anything, mock.Anything).Return([]*models.User{}, nil)

	// An unlisted sort key never reaches a query; it falls back to
	// score descending.
	rows, err := svc.StudentPerformanceTable(context.Background(), "1; DROP TABLE responses", "asc")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].StudentID)
}

func TestStudentsWithTimingData(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	repo.responses.On("StudentIDsWithResponses", mock.Anything).Return([]string{"alice", "bob"}, nil)
	repo.users.On("GetByIDs", mock.Anything, []string{"alice", "bob"}).Return([]*models.User{
		{ID: "alice", Username: "alice.w"},
		{ID: "bob", Username: "bob.k"},
	}, nil)

	students, err := svc.StudentsWithTimingData(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "alice.w", students[0].Username)
}

func TestStudentsWithTimingData_FallsBackToRoster(t *testing.T) {
	repo, svc := newAnalysisFixture(t, nil)

	repo.responses.On("StudentIDsWithResponses", mock.Anything).Return([]string{}, nil)
	repo.users.On("List", mock.Anything).Return([]*models.User{
		{ID: "carol", Username: "carol.m"},
	}, nil)

	students, err := svc.StudentsWithTimingData(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "carol", students[0].StudentID)
}
