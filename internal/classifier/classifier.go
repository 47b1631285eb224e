// Package classifier turns response timing into a suspicion verdict.
// It replaces the opaque stored-procedure logic of the original portal
// with an explicit, configurable threshold policy.
package classifier

import (
	"errors"
	"fmt"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
)

var (
	// ErrInvalidIdealTime is returned when ideal_time <= 0;
	// classification cannot proceed without dividing by it.
	ErrInvalidIdealTime = errors.New("invalid ideal time: must be positive")

	// ErrNegativeTimeTaken is returned for time_taken < 0, which is
	// outside the classifier's domain.
	ErrNegativeTimeTaken = errors.New("invalid time taken: must be non-negative")
)

// Thresholds is the tunable classification policy. A ratio below
// HighlySuspiciousMax is highly suspicious, below ModeratelySuspiciousMax
// moderately suspicious, anything else normal. The three bands
// partition [0, inf) with no gaps or overlaps.
type Thresholds struct {
	HighlySuspiciousMax     float64 `json:"highly_suspicious_max"`
	ModeratelySuspiciousMax float64 `json:"moderately_suspicious_max"`
}

// Default cutoffs. Placeholders pending calibration against real
// cohort data; deployments override them through configuration.
const (
	DefaultHighlySuspiciousMax     = 0.3
	DefaultModeratelySuspiciousMax = 0.6
)

// DefaultThresholds returns the placeholder policy (0.3 / 0.6).
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighlySuspiciousMax:     DefaultHighlySuspiciousMax,
		ModeratelySuspiciousMax: DefaultModeratelySuspiciousMax,
	}
}

// Validate checks that the bands are ordered and non-degenerate.
func (t Thresholds) Validate() error {
	if t.HighlySuspiciousMax <= 0 {
		return fmt.Errorf("highly_suspicious_max must be positive, got %v", t.HighlySuspiciousMax)
	}
	if t.ModeratelySuspiciousMax <= t.HighlySuspiciousMax {
		return fmt.Errorf("moderately_suspicious_max (%v) must exceed highly_suspicious_max (%v)",
			t.ModeratelySuspiciousMax, t.HighlySuspiciousMax)
	}
	return nil
}

// Result is the outcome of classifying a single response timing.
type Result struct {
	TimeRatio float64
	Level     models.SuspicionLevel
}

// Classifier maps (time_taken, ideal_time) pairs to suspicion levels.
// Pure and deterministic; safe for concurrent use.
type Classifier struct {
	thresholds Thresholds
}

func New(thresholds Thresholds) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier thresholds: %w", err)
	}
	return &Classifier{thresholds: thresholds}, nil
}

// NewDefault returns a classifier with the default policy.
func NewDefault() *Classifier {
	return &Classifier{thresholds: DefaultThresholds()}
}

// Thresholds returns the active policy.
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Classify computes time_taken / ideal_time and places the ratio into
// exactly one suspicion band. Both arguments are in seconds.
func (c *Classifier) Classify(timeTaken, idealTime float64) (Result, error) {
	if idealTime <= 0 {
		return Result{}, fmt.Errorf("cannot classify time_taken=%v against ideal_time=%v: %w",
			timeTaken, idealTime, ErrInvalidIdealTime)
	}
	if timeTaken < 0 {
		return Result{}, fmt.Errorf("cannot classify time_taken=%v: %w", timeTaken, ErrNegativeTimeTaken)
	}

	ratio := timeTaken / idealTime

	level := models.SuspicionNormal
	switch {
	case ratio < c.thresholds.HighlySuspiciousMax:
		level = models.HighlySuspicious
	case ratio < c.thresholds.ModeratelySuspiciousMax:
		level = models.ModeratelySuspicious
	}

	return Result{TimeRatio: ratio, Level: level}, nil
}
