package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/aptitude-portal/timing-analytics-service/internal/models"
)

// EventType represents different types of analytics events
type EventType string

const (
	EventResponseClassified EventType = "response.classified"
)

// AnalyticsEvent is the base event structure for all analytics events
type AnalyticsEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ResponseClassifiedEvent is emitted after a response is recorded and
// its timing verdict computed.
type ResponseClassifiedEvent struct {
	ResponseID     uint                  `json:"response_id"`
	StudentID      string                `json:"student_id"`
	QuestionID     uint                  `json:"question_id"`
	Category       string                `json:"category"`
	TimeTaken      float64               `json:"time_taken"`
	TimeRatio      float64               `json:"time_ratio"`
	SuspicionLevel models.SuspicionLevel `json:"suspicion_level"`
	IsCorrect      bool                  `json:"is_correct"`
	RecordedAt     time.Time             `json:"recorded_at"`
}

// Event factory functions

func NewResponseClassifiedEvent(data ResponseClassifiedEvent) *AnalyticsEvent {
	return &AnalyticsEvent{
		ID:        watermill.NewUUID(),
		Type:      EventResponseClassified,
		Timestamp: time.Now(),
		Source:    "timing-analytics-service",
		Version:   "1.0",
		Data:      data,
	}
}
