package models

import (
	"time"
)

// Response is one student's answer to one question. Append-only: the
// composite unique index enforces at most one response per
// (student, question) pair atomically at insert time.
type Response struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	StudentID      string  `json:"student_id" gorm:"not null;size:255;uniqueIndex:idx_responses_student_question;index"`
	QuestionID     uint    `json:"question_id" gorm:"not null;uniqueIndex:idx_responses_student_question;index"`
	SelectedOption string  `json:"selected_option" gorm:"not null;size:10"`
	TimeTaken      float64 `json:"time_taken" gorm:"not null"` // seconds
	IsCorrect      bool    `json:"is_correct" gorm:"not null"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Relations
	Question Question `json:"question" gorm:"foreignKey:QuestionID"`
	Student  User     `json:"student" gorm:"foreignKey:StudentID"`
}

func (Response) TableName() string {
	return "responses"
}
