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

// AggregationService builds the cross-cutting report shapes over
// classified events within a scope. All three are derived purely from
// the ledger at call time; an empty scope yields empty or zero-valued
// structures, never a division error.
type AggregationService interface {
	CategoryBreakdown(ctx context.Context, scope Scope) ([]CategoryBreakdownRow, error)
	VennCounts(ctx context.Context, scope Scope) (*VennCounts, error)
	TimeDistribution(ctx context.Context, scope Scope) ([]TimeDistributionRow, error)
}

// ===== REPORT SHAPES =====

// VennCounts feeds the overlap display. The three base counts are a
// true partition of total_answers; the *_and_* fields are deliberately
// overlapping unions for the visual, NOT disjoint buckets, and must
// stay that way. Missing data resolves to 0, never null.
type VennCounts struct {
	TotalAnswers         int `json:"total_answers"`
	HighlySuspicious     int `json:"highly_suspicious"`
	ModeratelySuspicious int `json:"moderately_suspicious"`
	Normal               int `json:"normal"`
	HighlyAndModerate    int `json:"highly_and_moderate"`
	ModerateAndNormal    int `json:"moderate_and_normal"`
	AllCategories        int `json:"all_categories"`
}

// CategoryBreakdownRow summarizes one question category touched by the
// scope. Categories with zero responses in scope are omitted entirely.
type CategoryBreakdownRow struct {
	Category             string  `json:"category"`
	Count                int     `json:"count"`
	SuspiciousCount      int     `json:"suspicious_count"`
	SuspiciousPercentage int     `json:"percentage"`
	AvgTimeRatio         float64 `json:"avg_time_ratio"`
}

// TimeDistributionRow is one suspicion level's share of the scope,
// percentage rounded to one decimal place.
type TimeDistributionRow struct {
	TimeCategory models.SuspicionLevel `json:"time_category"`
	Count        int                   `json:"count"`
	Percentage   float64               `json:"percentage"`
}

type aggregationService struct {
	ledgerReader
}

func NewAggregationService(repo repositories.Repository, cls *classifier.Classifier, logger *slog.Logger, timeout time.Duration) AggregationService {
	return &aggregationService{
		ledgerReader: newLedgerReader(repo, cls, logger, timeout),
	}
}

// CategoryBreakdown groups the scope's events by question category,
// ordered by count descending (category name ascending on ties).
func (s *aggregationService) CategoryBreakdown(ctx context.Context, scope Scope) ([]CategoryBreakdownRow, error) {
	events, err := s.classifiedFor(ctx, scope)
	if err != nil {
		return nil, err
	}

	type categoryAccum struct {
		count      int
		suspicious int
		ratioSum   float64
	}

	accum := make(map[string]*categoryAccum)
	for _, ev := range events {
		cat := ev.response.Question.Category
		entry, ok := accum[cat]
		if !ok {
			entry = &categoryAccum{}
			accum[cat] = entry
		}

		entry.count++
		entry.ratioSum += ev.classification.TimeRatio
		if ev.classification.SuspicionLevel.IsSuspicious() {
			entry.suspicious++
		}
	}

	rows := make([]CategoryBreakdownRow, 0, len(accum))
	for category, entry := range accum {
		rows = append(rows, CategoryBreakdownRow{
			Category:             category,
			Count:                entry.count,
			SuspiciousCount:      entry.suspicious,
			SuspiciousPercentage: int(math.Round(float64(entry.suspicious) / float64(entry.count) * 100)),
			AvgTimeRatio:         entry.ratioSum / float64(entry.count),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Category < rows[j].Category
	})

	return rows, nil
}

// VennCounts tallies the scope's events into the overlap shape.
func (s *aggregationService) VennCounts(ctx context.Context, scope Scope) (*VennCounts, error) {
	events, err := s.classifiedFor(ctx, scope)
	if err != nil {
		return nil, err
	}

	counts := &VennCounts{TotalAnswers: len(events)}
	for _, ev := range events {
		switch ev.classification.SuspicionLevel {
		case models.HighlySuspicious:
			counts.HighlySuspicious++
		case models.ModeratelySuspicious:
			counts.ModeratelySuspicious++
		case models.SuspicionNormal:
			counts.Normal++
		}
	}

	// Overlapping union fields for the display; the base counts are
	// disjoint by construction, so the unions reduce to sums.
	counts.HighlyAndModerate = counts.HighlySuspicious + counts.ModeratelySuspicious
	counts.ModerateAndNormal = counts.ModeratelySuspicious + counts.Normal
	counts.AllCategories = counts.TotalAnswers

	return counts, nil
}

// TimeDistribution reports each suspicion level present in scope, in
// fixed priority order: Highly Suspicious, Moderately Suspicious,
// Normal. Absent levels are omitted.
func (s *aggregationService) TimeDistribution(ctx context.Context, scope Scope) ([]TimeDistributionRow, error) {
	events, err := s.classifiedFor(ctx, scope)
	if err != nil {
		return nil, err
	}

	if len(events) == 0 {
		return []TimeDistributionRow{}, nil
	}

	counts := make(map[models.SuspicionLevel]int)
	for _, ev := range events {
		counts[ev.classification.SuspicionLevel]++
	}

	total := float64(len(events))
	rows := make([]TimeDistributionRow, 0, len(counts))
	for _, level := range models.SuspicionLevels {
		count, present := counts[level]
		if !present {
			continue
		}
		rows = append(rows, TimeDistributionRow{
			TimeCategory: level,
			Count:        count,
			Percentage:   math.Round(float64(count)*1000/total) / 10,
		})
	}

	return rows, nil
}
