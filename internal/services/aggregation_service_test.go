package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aptitude-portal/timing-analytics-service/internal/classifier"
	"github.com/aptitude-portal/timing-analytics-service/internal/models"
)

func newAggregationFixture(t *testing.T) (*mockRepository, AggregationService) {
	t.Helper()
	repo := newMockRepository()
	svc := NewAggregationService(repo, classifier.NewDefault(), testLogger(), time.Second)
	return repo, svc
}

// mixedLedger builds 10 responses over a 60s-ideal question:
// 2 highly suspicious (ratio < 0.3), 3 moderately suspicious
// (0.3 <= ratio < 0.6), 5 normal.
func mixedLedger() []*models.Response {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	math := testQuestion(1, "Math", 60)
	logic := testQuestion(2, "Logic", 60)

	taken := []struct {
		question *models.Question
		seconds  float64
	}{
		{math, 5}, {math, 10}, // highly
		{math, 20}, {logic, 25}, {logic, 30}, // moderately
		{logic, 40}, {logic, 50}, {logic, 60}, {logic, 70}, {logic, 90}, // normal
	}

	responses := make([]*models.Response, 0, len(taken))
	for i, tt := range taken {
		resp := testResponse("student-1", tt.question, tt.seconds, true, base.Add(time.Duration(i)*time.Minute))
		resp.ID = uint(i + 1)
		responses = append(responses, resp)
	}
	return responses
}

func TestVennCounts(t *testing.T) {
	repo, svc := newAggregationFixture(t)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(mixedLedger(), nil)

	counts, err := svc.VennCounts(context.Background(), StudentScope("student-1"))
	require.NoError(t, err)

	assert.Equal(t, 10, counts.TotalAnswers)
	assert.Equal(t, 2, counts.HighlySuspicious)
	assert.Equal(t, 3, counts.ModeratelySuspicious)
	assert.Equal(t, 5, counts.Normal)

	// The union fields overlap the base counts; that shape is what the
	// chart consumes.
	assert.Equal(t, 5, counts.HighlyAndModerate)
	assert.Equal(t, 8, counts.ModerateAndNormal)
	assert.Equal(t, 10, counts.AllCategories)

	// Base counts partition the total.
	assert.Equal(t, counts.TotalAnswers,
		counts.HighlySuspicious+counts.ModeratelySuspicious+counts.Normal)
}

func TestVennCounts_EmptyScope(t *testing.T) {
	repo, svc := newAggregationFixture(t)
	repo.responses.On("ListByStudent", mock.Anything, "student-empty").Return([]*models.Response{}, nil)

	counts, err := svc.VennCounts(context.Background(), StudentScope("student-empty"))
	require.NoError(t, err)
	assert.Equal(t, &VennCounts{}, counts)
}

func TestCategoryBreakdown(t *testing.T) {
	repo, svc := newAggregationFixture(t)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(mixedLedger(), nil)

	rows, err := svc.CategoryBreakdown(context.Background(), StudentScope("student-1"))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Ordered by count descending: Logic has 7, Math has 3.
	logic := rows[0]
	assert.Equal(t, "Logic", logic.Category)
	assert.Equal(t, 7, logic.Count)
	assert.Equal(t, 2, logic.SuspiciousCount)
	assert.Equal(t, 29, logic.SuspiciousPercentage) // round(2/7*100)
	assert.InDelta(t, (25.0+30+40+50+60+70+90)/60/7, logic.AvgTimeRatio, 1e-9)

	math := rows[1]
	assert.Equal(t, "Math", math.Category)
	assert.Equal(t, 3, math.Count)
	assert.Equal(t, 3, math.SuspiciousCount)
	assert.Equal(t, 100, math.SuspiciousPercentage)
}

func TestCategoryBreakdown_OmitsUntouchedCategories(t *testing.T) {
	repo, svc := newAggregationFixture(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	verbal := testQuestion(7, "Verbal", 60)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(
		[]*models.Response{testResponse("student-1", verbal, 45, true, base)}, nil)

	rows, err := svc.CategoryBreakdown(context.Background(), StudentScope("student-1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Verbal", rows[0].Category)
}

func TestTimeDistribution(t *testing.T) {
	repo, svc := newAggregationFixture(t)
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(mixedLedger(), nil)

	rows, err := svc.TimeDistribution(context.Background(), StudentScope("student-1"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Fixed priority order, most suspicious first.
	assert.Equal(t, models.HighlySuspicious, rows[0].TimeCategory)
	assert.Equal(t, 2, rows[0].Count)
	assert.InDelta(t, 20.0, rows[0].Percentage, 1e-9)

	assert.Equal(t, models.ModeratelySuspicious, rows[1].TimeCategory)
	assert.InDelta(t, 30.0, rows[1].Percentage, 1e-9)

	assert.Equal(t, models.SuspicionNormal, rows[2].TimeCategory)
	assert.InDelta(t, 50.0, rows[2].Percentage, 1e-9)

	var total float64
	for _, row := range rows {
		total += row.Percentage
	}
	assert.InDelta(t, 100.0, total, 0.1)
}

func TestTimeDistribution_RoundsToOneDecimal(t *testing.T) {
	repo, svc := newAggregationFixture(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	q := testQuestion(1, "Math", 60)
	// 1 of 3 highly suspicious: 33.333...% rounds to 33.3.
	responses := []*models.Response{
		testResponse("student-1", q, 5, true, base),
		testResponse("student-1", q, 60, true, base.Add(time.Minute)),
		testResponse("student-1", q, 61, true, base.Add(2*time.Minute)),
	}
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(responses, nil)

	rows, err := svc.TimeDistribution(context.Background(), StudentScope("student-1"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 33.3, rows[0].Percentage, 1e-9)
	assert.InDelta(t, 66.7, rows[1].Percentage, 1e-9)
}

func TestTimeDistribution_EmptyScope(t *testing.T) {
	repo, svc := newAggregationFixture(t)
	repo.responses.On("ListAll", mock.Anything, mock.Anything).Return([]*models.Response{}, nil)

	rows, err := svc.TimeDistribution(context.Background(), PopulationScope())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAggregation_SkipsUnclassifiableRows(t *testing.T) {
	repo, svc := newAggregationFixture(t)

	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	good := testQuestion(1, "Math", 60)
	bad := testQuestion(2, "Math", -10)

	responses := []*models.Response{
		testResponse("student-1", good, 60, true, base),
		testResponse("student-1", bad, 5, true, base.Add(time.Minute)),
	}
	repo.responses.On("ListByStudent", mock.Anything, "student-1").Return(responses, nil)

	counts, err := svc.VennCounts(context.Background(), StudentScope("student-1"))
	require.NoError(t, err)

	// The malformed row is excluded from every count, keeping the
	// partition and union identities intact.
	assert.Equal(t, 1, counts.TotalAnswers)
	assert.Equal(t, 1, counts.Normal)
	assert.Equal(t, 0, counts.HighlySuspicious)
}
