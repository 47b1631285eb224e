package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// DefaultIdealTimeSeconds is used when a question carries no ideal time.
const DefaultIdealTimeSeconds = 60

// Question is owned by the question bank; the engine only reads it.
// Immutable once referenced by responses.
type Question struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Text string `json:"text" gorm:"not null;type:text" validate:"required"`

	// Options maps option labels ("A".."D") to option text.
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectOption string         `json:"correct_option" gorm:"not null;size:10" validate:"required"`

	// IdealTime is the author-assigned expected solving duration in
	// seconds. NULL means "not set" and defaults at read time.
	IdealTime  *int            `json:"ideal_time" gorm:"column:ideal_time"`
	Category   string          `json:"category" gorm:"not null;size:100;index" validate:"required"`
	Difficulty DifficultyLevel `json:"difficulty" gorm:"size:20" validate:"omitempty,oneof=Easy Medium Hard"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}

// EffectiveIdealTime resolves the ideal time in seconds, substituting
// the default when none is set. A stored non-positive value is
// returned as-is so the classifier can reject it.
func (q *Question) EffectiveIdealTime() float64 {
	if q.IdealTime == nil {
		return DefaultIdealTimeSeconds
	}
	return float64(*q.IdealTime)
}
