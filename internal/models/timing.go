package models

import "time"

// SuspicionLevel is the categorical judgment that an answer was
// submitted implausibly fast relative to the question's ideal time.
type SuspicionLevel string

const (
	HighlySuspicious     SuspicionLevel = "Highly Suspicious"
	ModeratelySuspicious SuspicionLevel = "Moderately Suspicious"
	SuspicionNormal      SuspicionLevel = "Normal"
)

// SuspicionLevels lists all levels in display priority order
// (most suspicious first). Reports iterate this, never a map.
var SuspicionLevels = []SuspicionLevel{
	HighlySuspicious,
	ModeratelySuspicious,
	SuspicionNormal,
}

// IsSuspicious reports whether the level counts toward suspicious
// totals in aggregate views.
func (l SuspicionLevel) IsSuspicious() bool {
	return l == HighlySuspicious || l == ModeratelySuspicious
}

// TimingClassification is derived from a response and its question's
// ideal time. Never stored as source of truth: it is recomputed on
// read so a later ideal-time edit reflows into history.
type TimingClassification struct {
	StudentID      string         `json:"student_id"`
	QuestionID     uint           `json:"question_id"`
	TimeRatio      float64        `json:"time_ratio"` // time_taken / ideal_time
	SuspicionLevel SuspicionLevel `json:"suspicion_level"`
}

// StudentPerformanceSummary is a derived aggregate, recomputed on
// demand. Score is the simple percentage-correct metric;
// CompositeScore is the correctness-weighted, deviation-discounted
// leaderboard metric. The two are intentionally distinct.
type StudentPerformanceSummary struct {
	StudentID        string     `json:"student_id"`
	Username         string     `json:"username,omitempty"`
	TotalQuestions   int        `json:"total_questions"`
	CorrectAnswers   int        `json:"correct_answers"`
	Score            float64    `json:"score"` // 0–100
	AvgTimeDeviation float64    `json:"avg_time_deviation"`
	CompositeScore   float64    `json:"composite_score"`
	TotalTimeTaken   float64    `json:"time_taken"`
	LastActivityAt   *time.Time `json:"date,omitempty"`
}
